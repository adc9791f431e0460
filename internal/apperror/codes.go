package apperror

// Code is a stable, machine-readable error code.
type Code string

// General codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen        Code = "CIRCUIT_OPEN"
)

// Chain/RPC codes
const (
	CodeRPCConnectionFailed Code = "RPC_CONNECTION_FAILED"
	CodeRPCError            Code = "RPC_ERROR"
	CodeContractCallFailed  Code = "CONTRACT_CALL_FAILED"
	CodeGasPriceUnavailable Code = "GAS_PRICE_UNAVAILABLE"
)

// Quote/scan codes
const (
	CodeQuoteFailed        Code = "QUOTE_FAILED"
	CodeInvalidQuote       Code = "INVALID_QUOTE"
	CodeInsufficientQuotes Code = "INSUFFICIENT_QUOTES"
	CodeUnknownVenue       Code = "UNKNOWN_VENUE"
	CodeUnknownToken       Code = "UNKNOWN_TOKEN"
	CodePoolNotFound       Code = "POOL_NOT_FOUND"
	CodeStaleOpportunity   Code = "STALE_OPPORTUNITY"
)

// Oracle codes
const (
	CodeOracleUnavailable Code = "ORACLE_UNAVAILABLE"
	CodeOracleStale       Code = "ORACLE_STALE"
	CodeNoOracleFeed      Code = "NO_ORACLE_FEED"
)
