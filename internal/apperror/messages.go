package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeServiceTimeout:     "Service request timeout",
	CodeServiceUnavailable: "Service temporarily unavailable",
	CodeRateLimitExceeded:  "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Venue RPC errors
	CodeVenueConnectionFailed: "Failed to connect to venue RPC node",
	CodeVenueRPCError:         "Venue RPC call failed",
	CodeRateUnavailable:       "Exchange rate unavailable",
	CodePoolNotFound:          "Liquidity pool not found for token pair",
	CodeContractCallFailed:    "Smart contract call failed",
	CodeGasEstimationFailed:   "Gas estimation failed",

	// Trade submission errors
	CodeInsufficientFunds: "Insufficient funds for trade",
	CodeTradeRejected:     "Trade rejected by venue",
	CodeNonceConflict:     "Transaction nonce conflict",
	CodeTradeReverted:     "Trade transaction reverted on-chain",
	CodeTradeAmbiguous:    "Trade outcome unknown, on-chain state must be reconciled",
	CodeReceiptTimeout:    "Timed out waiting for transaction receipt",
	CodeSigningFailed:     "Failed to sign transaction",

	// Oracle errors
	CodePartialSample: "Only one venue returned a usable quote",
	CodeSampleFailed:  "Both venues failed to return a quote",

	// Executor errors
	CodeAttemptInFlight:        "An arbitrage attempt is already in flight for this venue pair",
	CodeSpreadCalculationError: "Spread calculation error",
	CodeInvalidTradeSize:       "Invalid trade size",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Storage errors
	CodeStorageUnavailable: "Trade store unavailable",
	CodeRecordFailed:       "Failed to persist record",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
