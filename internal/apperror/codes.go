package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Venue and execution error codes
const (
	// Venue RPC errors
	CodeVenueConnectionFailed Code = "VENUE_CONNECTION_FAILED"
	CodeVenueRPCError         Code = "VENUE_RPC_ERROR"
	CodeRateUnavailable       Code = "RATE_UNAVAILABLE"
	CodePoolNotFound          Code = "POOL_NOT_FOUND"
	CodeContractCallFailed    Code = "CONTRACT_CALL_FAILED"
	CodeGasEstimationFailed   Code = "GAS_ESTIMATION_FAILED"

	// Trade submission errors
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeTradeRejected     Code = "TRADE_REJECTED"
	CodeNonceConflict     Code = "NONCE_CONFLICT"
	CodeTradeReverted     Code = "TRADE_REVERTED"
	CodeTradeAmbiguous    Code = "TRADE_AMBIGUOUS"
	CodeReceiptTimeout    Code = "RECEIPT_TIMEOUT"
	CodeSigningFailed     Code = "SIGNING_FAILED"

	// Oracle errors
	CodePartialSample Code = "PARTIAL_SAMPLE"
	CodeSampleFailed  Code = "SAMPLE_FAILED"

	// Executor errors
	CodeAttemptInFlight        Code = "ATTEMPT_IN_FLIGHT"
	CodeSpreadCalculationError Code = "SPREAD_CALCULATION_ERROR"
	CodeInvalidTradeSize       Code = "INVALID_TRADE_SIZE"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Storage errors
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
	CodeRecordFailed       Code = "RECORD_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
