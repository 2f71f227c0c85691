package order

import (
	"fmt"

	"github.com/Nagulan13/oboma/internal/apperr"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusPreparing      Status = "preparing"
	StatusReadyForPickup Status = "ready for pickup"
	StatusCompleted      Status = "completed"
	// Reached from pending or preparing by an admin; terminal.
	StatusCancelled Status = "cancelled"
)

// fulfilment is the strict forward order staff move an order through.
var fulfilment = []Status{StatusPending, StatusPreparing, StatusReadyForPickup, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReadyForPickup, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Next returns the immediate successor of s, or false when s is terminal.
func Next(s Status) (Status, bool) {
	for i, st := range fulfilment[:len(fulfilment)-1] {
		if st == s {
			return fulfilment[i+1], true
		}
	}
	return "", false
}

// ValidateTransition accepts only the immediate successor of from, or
// cancellation from pending or preparing.
func ValidateTransition(from, to Status) error {
	if to == StatusCancelled {
		if from == StatusPending || from == StatusPreparing {
			return nil
		}
		return fmt.Errorf("%w: cannot cancel a %q order", apperr.ErrInvalidTransition, from)
	}
	if next, ok := Next(from); ok && next == to {
		return nil
	}
	return fmt.Errorf("%w: %q -> %q", apperr.ErrInvalidTransition, from, to)
}

// StatusColor is the label colour client views use for a status.
func StatusColor(s Status) string {
	switch s {
	case StatusPending, "new order":
		return "#FFA500"
	case StatusPreparing:
		return "#1E90FF"
	case StatusReadyForPickup:
		return "#32CD32"
	case StatusCompleted:
		return "#8B4513"
	default:
		return "#808080"
	}
}
