package model

// Error codes surfaced to API clients.
const (
	CodeInvalidChain      = "INVALID_CHAIN"
	CodeInvalidAddress    = "INVALID_ADDRESS"
	CodeBatchSizeExceeded = "BATCH_SIZE_EXCEEDED"
	CodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	CodeRateLimited       = "RATE_LIMITED"
	CodeAnalysisTimeout   = "ANALYSIS_TIMEOUT"
	CodeAnalysisException = "ANALYSIS_EXCEPTION"
	CodeInternalError     = "INTERNAL_ERROR"
)

// BatchItem is one entry of a batch analysis request. Liquidity is supplied
// by the caller; the engine does not fetch it.
type BatchItem struct {
	Address   string  `json:"address"`
	Chain     string  `json:"chain"`
	Liquidity float64 `json:"liquidity,omitempty"`
}

// ItemError is a per-item failure that did not fail the batch.
type ItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchMeta summarizes how a batch request was processed.
type BatchMeta struct {
	Requested        int    `json:"requested"`
	Unique           int    `json:"unique"`
	Succeeded        int    `json:"succeeded"`
	Failed           int    `json:"failed"`
	CacheHits        int    `json:"cacheHits"`
	CacheMisses      int    `json:"cacheMisses"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	Cached           bool   `json:"cached,omitempty"`
	RequestID        string `json:"requestId,omitempty"`
}

// BatchResponse is the batch endpoint payload. Results and errors are keyed
// by the per-token composite key "{chain}-{normalizedAddress}".
type BatchResponse struct {
	Results map[string]*RiskScore `json:"results"`
	Errors  map[string]ItemError  `json:"errors,omitempty"`
	Meta    BatchMeta             `json:"meta"`
}

// AccessKind distinguishes interactive users from automated agents.
type AccessKind string

// Access descriptor kinds.
const (
	KindHuman AccessKind = "human"
	KindAgent AccessKind = "agent"
)

// AccessDescriptor is the opaque output of the external auth/tier layer.
// The engine only consumes the batch-size ceiling.
type AccessDescriptor struct {
	Kind         AccessKind `json:"kind"`
	Tier         string     `json:"tier"`
	MaxBatchSize int        `json:"maxBatchSize"`
}
