package common

import "fmt"

// ProtocolErrType enumerates the failures of the synchronization protocol.
type ProtocolErrType uint32

const (
	// InvalidAge is raised when a model with a non-positive age is converted
	// to or from its age-weighted form.
	InvalidAge ProtocolErrType = iota
	// RollbackInvariant is raised when the transaction counter of an
	// incoming connection still disagrees with the remote one after a
	// rollback.
	RollbackInvariant
	// NoPendingSend is raised when a delta is computed without an
	// unconsumed sent payload.
	NoPendingSend
	// NotAddable is raised when a model lacks the Addable capability or is
	// combined with a model of another kind.
	NotAddable
	// UnknownKind is raised by registries for unknown keys.
	UnknownKind
	// ShapeMismatch is raised when holders or parameter vectors do not line
	// up.
	ShapeMismatch
)

// ProtocolErr ...
type ProtocolErr struct {
	component string
	errType   ProtocolErrType
	detail    string
}

// NewProtocolErr ...
func NewProtocolErr(component string, errType ProtocolErrType, detail string) ProtocolErr {
	return ProtocolErr{
		component: component,
		errType:   errType,
		detail:    detail,
	}
}

// Error ...
func (e ProtocolErr) Error() string {
	m := ""
	switch e.errType {
	case InvalidAge:
		m = "Invalid Age"
	case RollbackInvariant:
		m = "Rollback Invariant Violated"
	case NoPendingSend:
		m = "No Pending Send"
	case NotAddable:
		m = "Not Addable"
	case UnknownKind:
		m = "Unknown Kind"
	case ShapeMismatch:
		m = "Shape Mismatch"
	}

	if e.detail == "" {
		return fmt.Sprintf("%s, %s", e.component, m)
	}
	return fmt.Sprintf("%s, %s, %s", e.component, e.detail, m)
}

// Is makes ProtocolErr values comparable with errors.Is on their type only.
func (e ProtocolErr) Is(target error) bool {
	t, ok := target.(ProtocolErr)
	return ok && t.errType == e.errType && (t.component == "" || t.component == e.component)
}

// IsProtocol checks that an error is of type ProtocolErr and that its code
// matches the provided code. Wrapped errors are unwrapped.
func IsProtocol(err error, t ProtocolErrType) bool {
	for err != nil {
		if perr, ok := err.(ProtocolErr); ok {
			return perr.errType == t
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
