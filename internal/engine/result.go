package engine

// ResultCode classifies the outcome of a verification attempt.
type ResultCode string

const (
	CodeConfirmed                  ResultCode = "CONFIRMED"
	CodeRejected                   ResultCode = "REJECTED"
	CodeAlreadyProcessed           ResultCode = "ALREADY_PROCESSED"
	CodeInvalidHashFormat          ResultCode = "INVALID_HASH_FORMAT"
	CodeUnsupportedNetwork         ResultCode = "UNSUPPORTED_NETWORK"
	CodeNoMatchingRequest          ResultCode = "NO_MATCHING_REQUEST"
	CodeTransactionNotFound        ResultCode = "TRANSACTION_NOT_FOUND"
	CodeTransactionPending         ResultCode = "TRANSACTION_PENDING"
	CodeOnChainExecutionFailed     ResultCode = "ON_CHAIN_EXECUTION_FAILED"
	CodeProviderError              ResultCode = "PROVIDER_ERROR"
	CodeTimestampOrderingViolation ResultCode = "TIMESTAMP_ORDERING_VIOLATION"
	CodeAmountMismatch             ResultCode = "AMOUNT_MISMATCH"
	CodeInternalVerificationError  ResultCode = "INTERNAL_VERIFICATION_ERROR"
)

// Retryable reports whether the same hash may be resubmitted later with a
// different outcome. Format and lookup errors are retryable after the
// caller fixes the input; terminal codes are not.
func (c ResultCode) Retryable() bool {
	switch c {
	case CodeTransactionNotFound, CodeTransactionPending, CodeProviderError:
		return true
	}
	return false
}

// VerifyResult is the typed outcome returned to callers. Transport-level
// shaping (HTTP status codes etc.) is left to the caller.
type VerifyResult struct {
	Success       bool       `json:"success"`
	Code          ResultCode `json:"code"`
	Message       string     `json:"message"`
	DepositID     string     `json:"deposit_id,omitempty"`
	MatchedAmount string     `json:"matched_amount,omitempty"`
	Expected      string     `json:"expected,omitempty"`
	Actual        string     `json:"actual,omitempty"`
	PercentDiff   string     `json:"percent_diff,omitempty"`
	ExplorerURL   string     `json:"explorer_url,omitempty"`
}
