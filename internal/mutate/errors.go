package mutate

import "fmt"

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ValidationError blocks a single operation; it is shown inline where the user acted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ReorderRaceError reports a reorder that referenced an id no longer in the tree.
// Callers log it and carry on; the next refresh fixes the view.
type ReorderRaceError struct {
	Container string
	ID        string
}

func (e ReorderRaceError) Error() string {
	if e.Container == "" {
		return fmt.Sprintf("reorder: stale id %s", e.ID)
	}
	return fmt.Sprintf("reorder in %s: stale id %s", e.Container, e.ID)
}
