package model

// Stable machine-readable error codes carried in APIResponse.ErrorCode.
const (
	CodeValidation        = "VALIDATION_001"
	CodeInvalidEmail      = "VALIDATION_002"
	CodeInvalidPassword   = "VALIDATION_003"
	CodeRequiredField     = "VALIDATION_004"
	CodeInvalidCredential = "AUTH_001"
	CodeInvalidToken      = "AUTH_003"
	CodeTokenExpired      = "AUTH_004"
	CodeInvalidGoogle     = "AUTH_005"
	CodeAuthRequired      = "AUTH_006"
	CodeEmailTaken        = "BUSINESS_001"
	CodeUserNotFound      = "RESOURCE_001"
	CodeRateLimited       = "RATE_LIMIT_001"
	CodeInternal          = "SYSTEM_001"
)

// Public messages paired with the codes above.
const (
	MsgValidation        = "Validation failed for one or more fields"
	MsgInvalidEmail      = "Invalid email format"
	MsgInvalidPassword   = "Password must be at least 8 characters and contain uppercase, lowercase, and number"
	MsgRequiredField     = "Required field is missing"
	MsgInvalidCredential = "Invalid email or password"
	MsgInvalidToken      = "Invalid authentication token"
	MsgTokenExpired      = "Refresh token expired. Please login again"
	MsgInvalidGoogle     = "Invalid Google authentication token"
	MsgAuthRequired      = "Authentication is required to access this resource"
	MsgEmailTaken        = "An account with this email already exists"
	MsgUserNotFound      = "User not found"
	MsgRateLimited       = "Too many requests. Please try again later"
	MsgInternal          = "An unexpected error occurred. Please try again later"
)
