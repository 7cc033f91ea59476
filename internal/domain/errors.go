package domain

import (
	"errors"
	"fmt"
)

var (
	ErrComponentNotFound      = errors.New("component not found")
	ErrConnectionNotFound     = errors.New("connection not found")
	ErrDuplicateComponent     = errors.New("component already exists")
	ErrUnknownComponentType   = errors.New("unknown component type")
	ErrSelfLoop               = errors.New("component cannot connect to itself")
	ErrInvalidConnection      = errors.New("invalid connection")
	ErrConnectionRejected     = errors.New("connection rejected")
	ErrZoneViolation          = errors.New("position is inside a reserved client zone")
	ErrClientSlotTaken        = errors.New("client slot already occupied")
	ErrNotClientCapable       = errors.New("component type cannot be a client")
	ErrClientPinned           = errors.New("client components are pinned to their zone")
	ErrCustomColorUnsupported = errors.New("component type does not support custom colors")
	ErrNotArea                = errors.New("component type is not an area")
	ErrUnknownProblem         = errors.New("unknown problem kind")
	ErrClientsUnassigned      = errors.New("both client endpoints must be assigned")
)

// ConnectionRejectedError carries the rule table's reason for refusing a link.
// errors.Is(err, ErrConnectionRejected) matches it.
type ConnectionRejectedError struct {
	From   ComponentType
	To     ComponentType
	Reason string
}

func (e *ConnectionRejectedError) Error() string {
	return fmt.Sprintf("connection rejected between %s and %s: %s", e.From, e.To, e.Reason)
}

func (e *ConnectionRejectedError) Is(target error) bool {
	return target == ErrConnectionRejected
}

// RejectionReason extracts the human readable reason from a rejection error
func RejectionReason(err error) (string, bool) {
	var rejected *ConnectionRejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason, true
	}
	return "", false
}
