package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 12000-12999: Content (module/workshop) errors
// 13000-13999: Grading & Sandbox errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10004
	ServiceUnavailable  ErrorCode = 10005
	Timeout             ErrorCode = 10006

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10301

	// ========== Content Errors (12000-12999) ==========

	ModuleNotFound     ErrorCode = 12000
	WorkshopNotFound   ErrorCode = 12001
	ApproachNotFound   ErrorCode = 12002
	ApproachRequired   ErrorCode = 12003
	ContentLoadFailed  ErrorCode = 12004
	ContentInvalid     ErrorCode = 12005
	GraderSourceEmpty  ErrorCode = 12006
	SubmissionTooLarge ErrorCode = 12007

	// ========== Grading & Sandbox Errors (13000-13999) ==========

	// Static validation (13000-13099)
	SyntaxInvalid   ErrorCode = 13000
	PolicyViolation ErrorCode = 13001

	// Execution (13100-13199)
	ExecutionError    ErrorCode = 13100
	TimeoutExceeded   ErrorCode = 13101
	ContractViolation ErrorCode = 13102
	SandboxError      ErrorCode = 13103
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Content
	ModuleNotFound:     "Module not found",
	WorkshopNotFound:   "Workshop not found",
	ApproachNotFound:   "Approach not found",
	ApproachRequired:   "approachId is required for multi-approach workshops",
	ContentLoadFailed:  "Failed to load workshop content",
	ContentInvalid:     "Workshop content is malformed",
	GraderSourceEmpty:  "Workshop defines no grader source",
	SubmissionTooLarge: "Submission is too large",

	// Grading
	SyntaxInvalid:     "Submission does not parse",
	PolicyViolation:   "Submission uses a disallowed construct or import",
	ExecutionError:    "Execution raised an error",
	TimeoutExceeded:   "Execution exceeded the time limit",
	ContractViolation: "Grader does not define the required entrypoint",
	SandboxError:      "Sandbox execution failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == ModuleNotFound, c == WorkshopNotFound, c == ApproachNotFound:
		return 404
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c == SyntaxInvalid, c == PolicyViolation, c == ExecutionError, c == TimeoutExceeded:
		// Learner-caused failures: the request itself was well-formed,
		// the submitted code is what was rejected.
		return 422
	case c == ContractViolation, c == SandboxError:
		// Operator/content defects, not learner errors.
		return 500
	case c >= 10300 && c < 10400:
		return 400
	case c == InvalidParams, c == ApproachRequired, c == SubmissionTooLarge:
		return 400
	default:
		return 500
	}
}
