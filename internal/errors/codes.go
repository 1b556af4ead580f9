// Package errors provides structured error handling for Vellum.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 3XX: Network / external-service errors (retryable)
//   - 4XX: Validation and parse errors (never retried)
//   - 5XX: Store and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryNetwork indicates network and external-service errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation and parse errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryStore indicates relational-store errors.
	CategoryStore Category = "STORE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Network / external-service errors (300-399)
	ErrCodeTimeout             = "ERR_301_TIMEOUT"
	ErrCodeEmbedderUnavailable = "ERR_302_EMBEDDER_UNAVAILABLE"
	ErrCodeStoreTransient      = "ERR_303_STORE_TRANSIENT"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeQueryParse        = "ERR_403_QUERY_PARSE"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"
	ErrCodeQueryTooLong      = "ERR_405_QUERY_TOO_LONG"
	ErrCodeQueryTooShort     = "ERR_406_QUERY_TOO_SHORT"
	ErrCodeNotFound          = "ERR_407_NOT_FOUND"
	ErrCodeTagCycle          = "ERR_408_TAG_CYCLE"

	// Store / internal errors (500-599)
	ErrCodeInternal           = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed    = "ERR_502_EMBEDDING_FAILED"
	ErrCodeFulltextSearch     = "ERR_503_FULLTEXT_SEARCH"
	ErrCodeDatabase           = "ERR_504_DATABASE"
	ErrCodeDocumentProcessing = "ERR_505_DOCUMENT_PROCESSING"
	ErrCodeMigration          = "ERR_506_MIGRATION"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	case '5':
		return CategoryStore
	default:
		return CategoryInternal
	}
}

// isRetryableCode checks if an error code represents a retryable error.
// Only transient network and store failures are retried; validation and
// parse errors never are.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedderUnavailable, ErrCodeStoreTransient:
		return true
	default:
		return false
	}
}
