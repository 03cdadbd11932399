package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 20000-20099: Pairing errors
// 20100-20199: Rendezvous errors
// 20200-20299: Negotiation errors
// 20300-20399: RPC errors
// 20400-20499: Sandbox errors
// 20500-20599: Judge & test case errors
// 20600-20699: Submission store errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Cache errors (10200-10299)
	CacheError     ErrorCode = 10200
	CacheMiss      ErrorCode = 10201
	CacheSetFailed ErrorCode = 10202

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// Config errors (10400-10499)
	ConfigInvalid ErrorCode = 10400

	// ========== Pairing (20000-20099) ==========
	PairingCodeInvalid     ErrorCode = 20000
	PairingStoreFailed     ErrorCode = 20001
	PairingCodeGenerateErr ErrorCode = 20002

	// ========== Rendezvous (20100-20199) ==========
	RendezvousUnreachable ErrorCode = 20100
	RendezvousHandshake   ErrorCode = 20101
	RendezvousClosed      ErrorCode = 20102
	RendezvousProtocol    ErrorCode = 20103
	WakeProbeFailed       ErrorCode = 20104

	// ========== Negotiation (20200-20299) ==========
	NegotiationFailed   ErrorCode = 20200
	InvalidSignal       ErrorCode = 20201
	NoPeerLink          ErrorCode = 20202
	NegotiationQueueFull ErrorCode = 20203

	// ========== RPC (20300-20399) ==========
	InvalidRequest     ErrorCode = 20300
	UnknownMessageType ErrorCode = 20301
	ChannelClosed      ErrorCode = 20302

	// ========== Sandbox (20400-20499) ==========
	LanguageNotSupported ErrorCode = 20400
	CompilationError     ErrorCode = 20401
	ExecutionTimeout     ErrorCode = 20402
	ExecutionFailed      ErrorCode = 20403
	WorkspaceError       ErrorCode = 20404

	// ========== Judge (20500-20599) ==========
	ProblemSlugRequired ErrorCode = 20500
	TestCasesNotFound   ErrorCode = 20501
	TestCaseFetchFailed ErrorCode = 20502

	// ========== Submission store (20600-20699) ==========
	StoreError          ErrorCode = 20600
	SubmissionNotFound  ErrorCode = 20601
	EventPublishFailed  ErrorCode = 20602
)

var errorMessages = map[ErrorCode]string{
	Success: "Success",

	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service unavailable",
	Timeout:             "Request timeout",

	CacheError:     "Cache error",
	CacheMiss:      "Cache miss",
	CacheSetFailed: "Failed to set cache",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	ConfigInvalid: "Invalid configuration",

	PairingCodeInvalid:     "Stored pairing code is invalid",
	PairingStoreFailed:     "Failed to persist pairing code",
	PairingCodeGenerateErr: "Failed to generate pairing code",

	RendezvousUnreachable: "Cannot rendezvous with signaling server",
	RendezvousHandshake:   "Signaling handshake failed",
	RendezvousClosed:      "Signaling connection closed",
	RendezvousProtocol:    "Malformed signaling packet",
	WakeProbeFailed:       "Wake probe failed",

	NegotiationFailed:    "Peer negotiation failed",
	InvalidSignal:        "Invalid signal",
	NoPeerLink:           "No peer link",
	NegotiationQueueFull: "Negotiation queue is full",

	InvalidRequest:     "Invalid request",
	UnknownMessageType: "Unknown message type",
	ChannelClosed:      "Channel closed",

	LanguageNotSupported: "Unsupported language",
	CompilationError:     "Compilation failed",
	ExecutionTimeout:     "Execution timed out",
	ExecutionFailed:      "Execution failed",
	WorkspaceError:       "Workspace error",

	ProblemSlugRequired: "Problem slug is required",
	TestCasesNotFound:   "No test cases found for this problem",
	TestCaseFetchFailed: "Failed to fetch test cases",

	StoreError:         "Submission store error",
	SubmissionNotFound: "Submission not found",
	EventPublishFailed: "Failed to publish event",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus maps the error code to the status used by the local front door
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == SubmissionNotFound, c == TestCasesNotFound:
		return 404
	case c == ServiceUnavailable, c == RendezvousUnreachable:
		return 503
	case c == Timeout, c == ExecutionTimeout:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == InvalidRequest, c == UnknownMessageType,
		c == LanguageNotSupported, c == ProblemSlugRequired:
		return 400
	default:
		return 500
	}
}
