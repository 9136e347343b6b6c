// Package history keeps bounded undo/redo stacks of tree snapshots.
//
// State is a value: every function returns a new State and leaves its argument
// untouched, so a State can be shared freely between readers.
package history

import "courseforge/internal/model"

// DefaultLimit bounds the undo stack when no limit is configured.
const DefaultLimit = 50

type State struct {
	Past    []model.Snapshot
	Present model.Snapshot
	Future  []model.Snapshot
	Limit   int
}

func New(present model.Snapshot, limit int) State {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return State{Present: present, Limit: limit}
}

// Push records snap as the new present. The previous present moves onto the
// undo stack (oldest entries evicted past Limit) and the redo stack is cleared.
func Push(s State, snap model.Snapshot) State {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	past := make([]model.Snapshot, 0, min(len(s.Past)+1, limit))
	past = append(past, s.Past...)
	past = append(past, s.Present)
	if excess := len(past) - limit; excess > 0 {
		past = past[excess:]
	}
	return State{Past: past, Present: snap, Limit: limit}
}

// SetPresent replaces the present without touching either stack. Use it for
// display-only changes that should not be undoable.
func SetPresent(s State, snap model.Snapshot) State {
	s.Present = snap
	return s
}

// Undo steps back one snapshot. ok is false at the boundary.
func Undo(s State) (State, bool) {
	if len(s.Past) == 0 {
		return s, false
	}
	prev := s.Past[len(s.Past)-1]
	future := make([]model.Snapshot, 0, len(s.Future)+1)
	future = append(future, s.Future...)
	future = append(future, s.Present)
	return State{
		Past:    s.Past[: len(s.Past)-1 : len(s.Past)-1],
		Present: prev,
		Future:  future,
		Limit:   s.Limit,
	}, true
}

// Redo steps forward one snapshot. ok is false at the boundary.
func Redo(s State) (State, bool) {
	if len(s.Future) == 0 {
		return s, false
	}
	next := s.Future[len(s.Future)-1]
	past := make([]model.Snapshot, 0, len(s.Past)+1)
	past = append(past, s.Past...)
	past = append(past, s.Present)
	return State{
		Past:    past,
		Present: next,
		Future:  s.Future[: len(s.Future)-1 : len(s.Future)-1],
		Limit:   s.Limit,
	}, true
}

func (s State) CanUndo() bool { return len(s.Past) > 0 }
func (s State) CanRedo() bool { return len(s.Future) > 0 }
