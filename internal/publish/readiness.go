package publish

import (
	"fmt"
	"strings"

	"courseforge/internal/model"
)

// CourseWarningID is the synthetic id used for course-scope warnings.
const CourseWarningID = "course"

// ValidatePublishReadiness scans the tree for problems that should block (error)
// or merely flag (warning) publishing. It never blocks local editing.
func ValidatePublishReadiness(modules []model.Module) []model.Warning {
	if len(modules) == 0 {
		return []model.Warning{{
			ID:       CourseWarningID,
			Scope:    model.ScopeCourse,
			Severity: model.SeverityError,
			Message:  "Course has no modules",
		}}
	}

	var out []model.Warning
	for _, m := range modules {
		if len(m.Lessons) == 0 {
			out = append(out, model.Warning{
				ID:       m.ID,
				Scope:    model.ScopeModule,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("Module %q has no lessons", displayTitle(m.Title)),
			})
			continue
		}
		for _, l := range m.Lessons {
			if l.ContentType.NeedsText() && strings.TrimSpace(l.Text()) == "" {
				out = append(out, model.Warning{
					ID:       l.ID,
					Scope:    model.ScopeLesson,
					Severity: model.SeverityWarning,
					Message:  fmt.Sprintf("Lesson %q (%s) has no content", displayTitle(l.Title), l.ContentType),
				})
			}
		}
	}
	return out
}

// HasBlocking reports whether any warning is error severity.
func HasBlocking(ws []model.Warning) bool {
	for _, w := range ws {
		if w.Severity == model.SeverityError {
			return true
		}
	}
	return false
}

func displayTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "untitled"
	}
	return s
}
