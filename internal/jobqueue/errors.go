package jobqueue

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTaskType = errors.New("jobqueue: tipo de tarefa sem handler registrado")
	ErrEmptyBatch      = errors.New("jobqueue: lote vazio")
	ErrInvalidJob      = errors.New("jobqueue: job inválido")
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marca um erro que não deve ser retentado: o job vai direto para failed
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// panicError transforma um panic do handler em erro comum (retentável)
func panicError(v any) error {
	return fmt.Errorf("jobqueue: panic no handler: %v", v)
}
