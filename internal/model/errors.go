package model

import (
	"errors"
	"fmt"

	"github.com/maxbolgarin/errm"
)

// Sentinel errors of the pipeline taxonomy. The envelope maps them to HTTP
// status codes: ErrAuth -> 401, ErrSchema -> 400, everything else -> 500.
var (
	ErrAuth   = errm.New("authentication failed")
	ErrSchema = errm.New("invalid payload schema")
	ErrParse  = errm.New("model output parse failed")
)

// ForgeError carries a non-2xx response from a forge API.
type ForgeError struct {
	StatusCode int
	Body       string
}

func (e *ForgeError) Error() string {
	return fmt.Sprintf("forge returned status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether an operation that hit err may be retried.
// Only 429 and 5xx forge responses qualify.
func IsRetryable(err error) bool {
	var fe *ForgeError
	if errors.As(err, &fe) {
		return fe.StatusCode == 429 || fe.StatusCode >= 500
	}
	return false
}
