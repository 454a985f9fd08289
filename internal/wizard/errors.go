package wizard

import (
	"errors"
	"fmt"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

type ValidationError = models.ValidationError

var (
	ErrAuthRequired       = errors.New("please log in to submit order")
	ErrSubmissionInFlight = errors.New("this order is already being submitted")
	ErrDraftNotFound      = errors.New("order draft not found or expired")
)

// UploadError means a file could not be stored. Nothing was persisted.
type UploadError struct {
	File  string
	Proof bool // the payment screenshot rather than a print file
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.File, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PersistenceError means the order record could not be written. Orphaned
// lists the blob URLs uploaded before the failure; they are not removed.
type PersistenceError struct {
	Orphaned []string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save order: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
