package apperror

import "errors"

// Class partitions errors by how the caller is allowed to recover from them.
// The scheduler and executor branch on class, never on individual codes.
type Class string

const (
	// ClassNetworkTransient covers timeouts and connection errors. The
	// request never reached the venue; retry with backoff is safe.
	ClassNetworkTransient Class = "NETWORK_TRANSIENT"

	// ClassVenueRejected covers requests the venue received and refused
	// (bad parameters, insufficient funds). Not retryable without
	// operator intervention.
	ClassVenueRejected Class = "VENUE_REJECTED"

	// ClassOnChainReverted covers transactions that landed on-chain and
	// failed execution. Not retryable as-is; re-quoting is required.
	ClassOnChainReverted Class = "ONCHAIN_REVERTED"

	// ClassAmbiguous covers submissions with unknown on-chain state
	// (timeout after send, cancellation mid-flight). On-chain state must
	// be reconciled before any further action.
	ClassAmbiguous Class = "AMBIGUOUS"

	// ClassConfigInvalid is fatal at startup; the process must not trade.
	ClassConfigInvalid Class = "CONFIG_INVALID"

	// ClassInternal is everything else: programming errors and unknown
	// failures. Treated as non-retryable within the current attempt.
	ClassInternal Class = "INTERNAL"
)

// classes maps error codes to their default recovery class.
var classes = map[Code]Class{
	CodeServiceTimeout:           ClassNetworkTransient,
	CodeServiceUnavailable:       ClassNetworkTransient,
	CodeRateLimitExceeded:        ClassNetworkTransient,
	CodeVenueConnectionFailed:    ClassNetworkTransient,
	CodeVenueRPCError:            ClassNetworkTransient,
	CodeRateUnavailable:          ClassNetworkTransient,
	CodeSampleFailed:             ClassNetworkTransient,
	CodePartialSample:            ClassNetworkTransient,
	CodeWebSocketConnectionError: ClassNetworkTransient,
	CodeWebSocketClosed:          ClassNetworkTransient,
	CodeWebSocketSendError:       ClassNetworkTransient,
	CodeCircuitOpen:              ClassNetworkTransient,
	CodeStorageUnavailable:       ClassNetworkTransient,

	CodeInsufficientFunds: ClassVenueRejected,
	CodeTradeRejected:     ClassVenueRejected,
	CodeNonceConflict:     ClassVenueRejected,
	CodePoolNotFound:      ClassVenueRejected,
	CodeInvalidTradeSize:  ClassVenueRejected,

	CodeTradeReverted: ClassOnChainReverted,

	CodeTradeAmbiguous: ClassAmbiguous,
	CodeReceiptTimeout: ClassAmbiguous,

	CodeConfigurationError: ClassConfigInvalid,
	CodeRequiredField:      ClassConfigInvalid,
	CodeValidationError:    ClassConfigInvalid,
}

// defaultClass returns the recovery class for a code.
func defaultClass(code Code) Class {
	if c, ok := classes[code]; ok {
		return c
	}
	return ClassInternal
}

// ClassOf extracts the recovery class from any error. Errors that are not
// AppErrors are internal by definition: nothing is known about their safety.
func ClassOf(err error) Class {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Class
	}
	return ClassInternal
}

// IsRetryable reports whether the error is safe to retry on a later cycle
// without reconciling any external state first.
func IsRetryable(err error) bool {
	return ClassOf(err) == ClassNetworkTransient
}
