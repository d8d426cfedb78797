package syncing

import (
	"errors"
	"fmt"
)

var (
	// Erros de validação
	ErrInvalidPayload = errors.New("invalid sync payload")
	ErrInvalidRange   = errors.New("invalid sync date range")

	// Erros de infraestrutura
	ErrGenerateBatchID = errors.New("error generating batch id")
	ErrEnqueue         = errors.New("error enqueueing sync jobs")
	ErrUnknownObject   = errors.New("performance row references unknown object")
)

// SyncError carrega o código da API junto com o erro base
type SyncError struct {
	Err     error
	Code    string
	Details string
}

func (e *SyncError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func NewSyncError(err error, code string, details string) *SyncError {
	return &SyncError{
		Err:     err,
		Code:    code,
		Details: details,
	}
}
