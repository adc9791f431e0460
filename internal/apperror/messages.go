package apperror

// messages maps codes to default human-readable messages. A message
// set via WithMessage takes precedence.
var messages = map[Code]string{
	CodeInvalidInput:       "invalid input",
	CodeConfigurationError: "invalid configuration",
	CodeInternalError:      "internal error",
	CodeUnknownError:       "unknown error",
	CodeServiceTimeout:     "operation timed out",
	CodeRateLimitExceeded:  "rate limit exceeded",
	CodeCircuitOpen:        "circuit breaker open",

	CodeRPCConnectionFailed: "rpc connection failed",
	CodeRPCError:            "rpc call failed",
	CodeContractCallFailed:  "contract call failed",
	CodeGasPriceUnavailable: "gas price unavailable",

	CodeQuoteFailed:        "quote request failed",
	CodeInvalidQuote:       "quote is invalid",
	CodeInsufficientQuotes: "not enough valid quotes",
	CodeUnknownVenue:       "venue not configured",
	CodeUnknownToken:       "token not registered",
	CodePoolNotFound:       "no pool configured for pair",
	CodeStaleOpportunity:   "opportunity expired",

	CodeOracleUnavailable: "oracle price unavailable",
	CodeOracleStale:       "oracle price is stale",
	CodeNoOracleFeed:      "no oracle feed for token",
}
