package mutate

import (
	"strings"

	"courseforge/internal/model"
)

// ReorderModules moves the module activeID into the slot currently held by overID
// and renumbers every module position to 0..m-1.
//
// activeID == overID returns the input unchanged with a nil error. A missing id
// also returns the input unchanged, together with a ReorderRaceError the caller
// is expected to log and otherwise ignore.
func ReorderModules(modules []model.Module, activeID, overID string) ([]model.Module, error) {
	activeID = strings.TrimSpace(activeID)
	overID = strings.TrimSpace(overID)
	if activeID == overID {
		return modules, nil
	}
	from := moduleIndex(modules, activeID)
	if from < 0 {
		return modules, ReorderRaceError{ID: activeID}
	}
	to := moduleIndex(modules, overID)
	if to < 0 {
		return modules, ReorderRaceError{ID: overID}
	}

	out := moveIndex(modules, from, to)
	for i := range out {
		out[i].Position = i
	}
	return out, nil
}

// ReorderLessons is ReorderModules scoped to one module's lessons. Only that
// module's lesson positions are renumbered.
func ReorderLessons(modules []model.Module, moduleID, activeID, overID string) ([]model.Module, error) {
	activeID = strings.TrimSpace(activeID)
	overID = strings.TrimSpace(overID)
	mi := moduleIndex(modules, moduleID)
	if mi < 0 {
		return modules, ReorderRaceError{ID: moduleID}
	}
	if activeID == overID {
		return modules, nil
	}
	lessons := modules[mi].Lessons
	from, to := -1, -1
	for i := range lessons {
		switch lessons[i].ID {
		case activeID:
			from = i
		case overID:
			to = i
		}
	}
	if from < 0 {
		return modules, ReorderRaceError{Container: moduleID, ID: activeID}
	}
	if to < 0 {
		return modules, ReorderRaceError{Container: moduleID, ID: overID}
	}

	out := append([]model.Module(nil), modules...)
	out[mi].Lessons = renumberLessons(moveIndex(lessons, from, to))
	return out, nil
}

// OrderedModuleIDs lists module ids in tree order.
func OrderedModuleIDs(modules []model.Module) []string {
	out := make([]string, 0, len(modules))
	for _, m := range modules {
		out = append(out, m.ID)
	}
	return out
}

// OrderedLessonIDs lists a module's lesson ids in tree order; nil when the module is absent.
func OrderedLessonIDs(modules []model.Module, moduleID string) []string {
	m, ok := FindModule(modules, moduleID)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(m.Lessons))
	for _, l := range m.Lessons {
		out = append(out, l.ID)
	}
	return out
}

// moveIndex returns a copy of xs with the element at from relocated to index to.
func moveIndex[T any](xs []T, from, to int) []T {
	moved := xs[from]
	rest := make([]T, 0, len(xs))
	rest = append(rest, xs[:from]...)
	rest = append(rest, xs[from+1:]...)

	out := make([]T, 0, len(xs))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	return out
}
