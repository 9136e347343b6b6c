package tui

import "courseforge/internal/model"

type rowKind int

const (
	rowModule rowKind = iota
	rowLesson
)

// row is one visible line of the outline.
type row struct {
	kind     rowKind
	moduleID string
	module   model.Module
	lesson   model.Lesson
}

func (r row) id() string {
	if r.kind == rowLesson {
		return r.lesson.ID
	}
	return r.moduleID
}

// flattenRows lists modules with their lessons; collapsed modules hide theirs.
func flattenRows(modules []model.Module) []row {
	out := make([]row, 0, len(modules)*4)
	for _, m := range modules {
		out = append(out, row{kind: rowModule, moduleID: m.ID, module: m})
		if m.Collapsed {
			continue
		}
		for _, l := range m.Lessons {
			out = append(out, row{kind: rowLesson, moduleID: m.ID, module: m, lesson: l})
		}
	}
	return out
}

// neighbor returns the id of the sibling delta steps away from r within the
// same container, or "" at the edge.
func neighbor(modules []model.Module, r row, delta int) string {
	if r.kind == rowModule {
		for i, m := range modules {
			if m.ID == r.moduleID {
				j := i + delta
				if j < 0 || j >= len(modules) {
					return ""
				}
				return modules[j].ID
			}
		}
		return ""
	}
	for _, m := range modules {
		if m.ID != r.moduleID {
			continue
		}
		for i, l := range m.Lessons {
			if l.ID == r.lesson.ID {
				j := i + delta
				if j < 0 || j >= len(m.Lessons) {
					return ""
				}
				return m.Lessons[j].ID
			}
		}
	}
	return ""
}

func nextContentType(ct model.ContentType) model.ContentType {
	all := model.ContentTypes()
	for i, c := range all {
		if c == ct {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}
