// Package templates resolves lesson templates and the module a new lesson lands in.
package templates

import (
	"context"
	"fmt"
	"strings"

	"courseforge/internal/gateway"
	"courseforge/internal/model"
	"courseforge/internal/mutate"
)

// Builtin is used when the config declares no templates.
func Builtin() []model.LessonTemplate {
	return []model.LessonTemplate{
		{ID: "video-lecture", Name: "Video lecture", Title: "New video lecture", ContentType: model.ContentVideo},
		{ID: "reading", Name: "Reading", Title: "New reading", ContentType: model.ContentText, ContentText: "## Overview\n\n"},
		{ID: "knowledge-check", Name: "Knowledge check", Title: "Knowledge check", ContentType: model.ContentQuiz, ContentText: "1. Question\n   - [ ] Answer\n"},
		{ID: "assignment", Name: "Assignment", Title: "Assignment", ContentType: model.ContentAssignment, ContentText: "### Task\n\n### Submission\n"},
		{ID: "preview-trailer", Name: "Preview trailer", Title: "Course trailer", ContentType: model.ContentVideo, IsPreview: true},
	}
}

// Normalize trims and validates a configured template list. Ids must be unique
// and every template needs a title and a known content type.
func Normalize(in []model.LessonTemplate) ([]model.LessonTemplate, error) {
	if len(in) == 0 {
		return Builtin(), nil
	}
	seen := map[string]bool{}
	out := make([]model.LessonTemplate, 0, len(in))
	for i, t := range in {
		t.ID = strings.TrimSpace(t.ID)
		t.Name = strings.TrimSpace(t.Name)
		t.Title = strings.TrimSpace(t.Title)
		t.ContentType = model.ContentType(strings.ToLower(strings.TrimSpace(string(t.ContentType))))
		if t.ID == "" {
			return nil, fmt.Errorf("templates[%d].id is empty", i)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate template id: %q", t.ID)
		}
		seen[t.ID] = true
		if t.Title == "" {
			return nil, fmt.Errorf("templates[%d].title is empty", i)
		}
		if t.Name == "" {
			t.Name = t.Title
		}
		if !t.ContentType.Valid() {
			return nil, fmt.Errorf("templates[%d].contentType %q is invalid", i, t.ContentType)
		}
		out = append(out, t)
	}
	return out, nil
}

func Find(list []model.LessonTemplate, id string) (model.LessonTemplate, bool) {
	id = strings.TrimSpace(id)
	for _, t := range list {
		if t.ID == id {
			return t, true
		}
	}
	return model.LessonTemplate{}, false
}

// TargetModule picks where a template lesson goes: the explicit module, else the
// module holding the selected lesson, else the first module. An empty tree is a
// blocking error.
func TargetModule(modules []model.Module, selectedLessonID, explicitModuleID string) (string, error) {
	if len(modules) == 0 {
		return "", mutate.ValidationError{Field: "moduleId", Reason: "add a module before applying a template"}
	}
	if id := strings.TrimSpace(explicitModuleID); id != "" {
		if _, ok := mutate.FindModule(modules, id); !ok {
			return "", mutate.ValidationError{Field: "moduleId", Reason: fmt.Sprintf("module %s is not in this course", id)}
		}
		return id, nil
	}
	if selectedLessonID != "" {
		if id := mutate.FindModuleIDByLessonID(modules, selectedLessonID); id != "" {
			return id, nil
		}
	}
	return modules[0].ID, nil
}

type Result struct {
	TemplateID string `json:"templateId"`
	ModuleID   string `json:"moduleId"`
	LessonID   string `json:"lessonId"`
}

// Apply resolves the template and target and asks the gateway to create the lesson.
// Callers reload the tree afterward; the returned lesson id is the server's.
func Apply(ctx context.Context, gw gateway.Gateway, list []model.LessonTemplate, templateID string, modules []model.Module, selectedLessonID, explicitModuleID string) (Result, error) {
	tpl, ok := Find(list, templateID)
	if !ok {
		return Result{}, mutate.ValidationError{Field: "templateId", Reason: fmt.Sprintf("unknown template %q", templateID)}
	}
	moduleID, err := TargetModule(modules, selectedLessonID, explicitModuleID)
	if err != nil {
		return Result{}, err
	}
	lessonID, err := gw.CreateLessonFromTemplate(ctx, moduleID, tpl)
	if err != nil {
		return Result{TemplateID: tpl.ID, ModuleID: moduleID}, err
	}
	return Result{TemplateID: tpl.ID, ModuleID: moduleID, LessonID: lessonID}, nil
}
