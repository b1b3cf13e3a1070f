// Package errors provides structured error handling for the game session
// service and its gRPC boundary.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Game lifecycle errors
	CodeGameAlreadyStarted    Code = "GAME_ALREADY_STARTED"
	CodeGameStartInProgress   Code = "GAME_START_IN_PROGRESS"
	CodeGameNotFound          Code = "GAME_NOT_FOUND"
	CodeGameNotStarted        Code = "GAME_NOT_STARTED"
	CodeGameOver              Code = "GAME_OVER"
	CodeWordCheckInProgress   Code = "WORD_CHECK_IN_PROGRESS"
	CodeActionUnknown         Code = "ACTION_UNKNOWN"
	CodeCallerRequired        Code = "CALLER_REQUIRED"
	CodeCallerReserved        Code = "CALLER_RESERVED"
	CodeWordLengthInvalid     Code = "WORD_LENGTH_INVALID"
	CodeWordNotLowercase      Code = "WORD_NOT_LOWERCASE"
	CodeInvalidWakeupEvent    Code = "INVALID_WAKEUP_EVENT"
	CodeOracleUnavailable     Code = "ORACLE_UNAVAILABLE"
	CodeOracleNotConfigured   Code = "ORACLE_NOT_CONFIGURED"
	CodeUnauthenticated       Code = "UNAUTHENTICATED"
	CodePermissionDenied      Code = "PERMISSION_DENIED"
	CodeDeliveryFailed        Code = "DELIVERY_FAILED"
	CodeResultLimitOutOfRange Code = "RESULT_LIMIT_OUT_OF_RANGE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeActionUnknown,
		CodeCallerRequired,
		CodeCallerReserved,
		CodeWordLengthInvalid,
		CodeWordNotLowercase,
		CodeResultLimitOutOfRange:
		return codes.InvalidArgument

	// FailedPrecondition - the session state does not allow the operation
	case CodeGameAlreadyStarted,
		CodeGameStartInProgress,
		CodeGameNotStarted,
		CodeGameOver,
		CodeWordCheckInProgress:
		return codes.FailedPrecondition

	case CodeGameNotFound:
		return codes.NotFound

	case CodeUnauthenticated:
		return codes.Unauthenticated

	case CodePermissionDenied:
		return codes.PermissionDenied

	case CodeOracleUnavailable, CodeDeliveryFailed:
		return codes.Unavailable

	// Internal - collaborator contract violations and wiring faults
	case CodeInvalidWakeupEvent, CodeOracleNotConfigured:
		return codes.Internal

	default:
		return codes.Internal
	}
}
