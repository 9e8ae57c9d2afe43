// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrNotCancellable is returned when a scheduled batch already left the pending state.
var ErrNotCancellable = errors.New("scheduled message is no longer pending")

// ErrInvalidInput marks caller mistakes; wrap it with InvalidInput.
var ErrInvalidInput = errors.New("invalid input")

// ErrPartnerNotFound is returned when a partner id does not resolve.
type ErrPartnerNotFound struct {
	PartnerID int64
}

func (e *ErrPartnerNotFound) Error() string {
	return fmt.Sprintf("partner with ID %d not found", e.PartnerID)
}

func NewPartnerNotFound(id int64) error {
	return &ErrPartnerNotFound{PartnerID: id}
}

// ErrScheduledMessageNotFound is returned when a scheduled batch id does not resolve.
type ErrScheduledMessageNotFound struct {
	ScheduledID int64
}

func (e *ErrScheduledMessageNotFound) Error() string {
	return fmt.Sprintf("scheduled message with ID %d not found", e.ScheduledID)
}

func NewScheduledMessageNotFound(id int64) error {
	return &ErrScheduledMessageNotFound{ScheduledID: id}
}

// InvalidInput wraps ErrInvalidInput with a reason.
func InvalidInput(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	var p *ErrPartnerNotFound
	var s *ErrScheduledMessageNotFound
	return errors.As(err, &p) || errors.As(err, &s)
}
