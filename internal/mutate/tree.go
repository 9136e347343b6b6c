package mutate

import (
	"strings"

	"courseforge/internal/model"
)

// The helpers in this file never modify their inputs. A call that changes nothing
// returns the very slice it was given, so callers can detect no-ops cheaply.

// WithModuleUpdate returns modules with the module matching moduleID replaced by update(module).
func WithModuleUpdate(modules []model.Module, moduleID string, update func(model.Module) model.Module) []model.Module {
	idx := moduleIndex(modules, moduleID)
	if idx < 0 || update == nil {
		return modules
	}
	out := append([]model.Module(nil), modules...)
	out[idx] = update(modules[idx])
	return out
}

// WithLessonUpdate is WithModuleUpdate for a lesson nested in any module.
func WithLessonUpdate(modules []model.Module, lessonID string, update func(model.Lesson) model.Lesson) []model.Module {
	mi, li := lessonIndex(modules, lessonID)
	if mi < 0 || update == nil {
		return modules
	}
	out := append([]model.Module(nil), modules...)
	lessons := append([]model.Lesson(nil), modules[mi].Lessons...)
	lessons[li] = update(lessons[li])
	out[mi].Lessons = lessons
	return out
}

func FindLesson(modules []model.Module, lessonID string) (model.Lesson, bool) {
	mi, li := lessonIndex(modules, lessonID)
	if mi < 0 {
		return model.Lesson{}, false
	}
	return modules[mi].Lessons[li], true
}

func FindModule(modules []model.Module, moduleID string) (model.Module, bool) {
	idx := moduleIndex(modules, moduleID)
	if idx < 0 {
		return model.Module{}, false
	}
	return modules[idx], true
}

// FindModuleIDByLessonID returns "" when the lesson is not in the tree.
func FindModuleIDByLessonID(modules []model.Module, lessonID string) string {
	mi, _ := lessonIndex(modules, lessonID)
	if mi < 0 {
		return ""
	}
	return modules[mi].ID
}

// RemoveLessons drops every lesson whose id is in ids and renumbers the
// remaining lessons of each touched module to 0..n-1.
func RemoveLessons(modules []model.Module, ids map[string]bool) []model.Module {
	if len(ids) == 0 {
		return modules
	}
	var out []model.Module
	for i, m := range modules {
		kept := make([]model.Lesson, 0, len(m.Lessons))
		for _, l := range m.Lessons {
			if !ids[l.ID] {
				kept = append(kept, l)
			}
		}
		if len(kept) == len(m.Lessons) {
			continue
		}
		if out == nil {
			out = append([]model.Module(nil), modules...)
		}
		out[i].Lessons = renumberLessons(kept)
	}
	if out == nil {
		return modules
	}
	return out
}

// LessonIDs returns the set of lesson ids present in the tree.
func LessonIDs(modules []model.Module) map[string]bool {
	out := map[string]bool{}
	for _, m := range modules {
		for _, l := range m.Lessons {
			out[l.ID] = true
		}
	}
	return out
}

// ValidateLessonPatch rejects patches that would break a lesson before they reach the tree.
func ValidateLessonPatch(p model.LessonPatch) error {
	if p.Empty() {
		return ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if p.ContentType != nil && !p.ContentType.Valid() {
		return ValidationError{Field: "contentType", Reason: "unknown content type " + string(*p.ContentType)}
	}
	return nil
}

// ApplyLessonPatch merges p into l. Callers validate p first.
func ApplyLessonPatch(l model.Lesson, p model.LessonPatch) model.Lesson {
	if p.Title != nil {
		l.Title = strings.TrimSpace(*p.Title)
	}
	if p.ContentType != nil {
		l.ContentType = *p.ContentType
	}
	if p.IsPreview != nil {
		l.IsPreview = *p.IsPreview
	}
	if p.ContentText != nil {
		txt := *p.ContentText
		l.ContentText = &txt
	}
	return l
}

// SameContent reports whether two lessons agree on every field the store persists
// through saveLesson.
func SameContent(a, b model.Lesson) bool {
	return a.Title == b.Title &&
		a.ContentType == b.ContentType &&
		a.IsPreview == b.IsPreview &&
		a.Text() == b.Text() &&
		(a.ContentText == nil) == (b.ContentText == nil)
}

func moduleIndex(modules []model.Module, moduleID string) int {
	moduleID = strings.TrimSpace(moduleID)
	if moduleID == "" {
		return -1
	}
	for i := range modules {
		if modules[i].ID == moduleID {
			return i
		}
	}
	return -1
}

func lessonIndex(modules []model.Module, lessonID string) (int, int) {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return -1, -1
	}
	for i := range modules {
		for j := range modules[i].Lessons {
			if modules[i].Lessons[j].ID == lessonID {
				return i, j
			}
		}
	}
	return -1, -1
}

func renumberLessons(ls []model.Lesson) []model.Lesson {
	for i := range ls {
		ls[i].Position = i
	}
	return ls
}
