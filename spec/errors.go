package spec

import "fmt"

// TypeError reports a value whose shape does not match the attribute it was
// assigned to. It is raised at assignment time, never deferred to rendering.
type TypeError struct {
	Key   string
	Value any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("spec: attribute %q does not accept %T value %v", e.Key, e.Value, e.Value)
}

// NoSuchAttributeError reports a read of an attribute that was never set.
type NoSuchAttributeError struct {
	Key string
}

func (e *NoSuchAttributeError) Error() string {
	return fmt.Sprintf("spec: no such attribute %q", e.Key)
}
