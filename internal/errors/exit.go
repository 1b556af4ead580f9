package errors

import "errors"

// CLI exit codes.
const (
	ExitOK        = 0
	ExitUsage     = 2 // invalid argument
	ExitNotFound  = 3 // entity not found
	ExitUpstream  = 4 // store or embedder error
	ExitCancelled = 5 // cancelled or timed out
)

// ExitCode maps an error to the process exit code the CLI contract defines.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if IsTimeout(err) {
		return ExitCancelled
	}

	var e *Error
	if !errors.As(err, &e) {
		return ExitUpstream
	}

	switch e.Code {
	case ErrCodeNotFound:
		return ExitNotFound
	}

	switch e.Category {
	case CategoryValidation, CategoryConfig:
		return ExitUsage
	case CategoryNetwork:
		if e.Code == ErrCodeTimeout {
			return ExitCancelled
		}
		return ExitUpstream
	default:
		return ExitUpstream
	}
}
