// Package gateway defines the persistence contract the editing session relies on.
// It is the only boundary that touches a store or the network; implementations
// live in internal/store (SQL) and internal/remote (HTTP).
package gateway

import (
	"context"

	"courseforge/internal/model"
)

// Structure is a full course reload.
type Structure struct {
	Course  model.Course   `json:"course"`
	Modules []model.Module `json:"modules"`
}

type Gateway interface {
	FetchStructure(ctx context.Context, courseID string) (Structure, error)

	// SaveLesson is an idempotent upsert of the lesson's editable fields.
	SaveLesson(ctx context.Context, lesson model.Lesson) error

	CreateLessonFromTemplate(ctx context.Context, moduleID string, tpl model.LessonTemplate) (string, error)
	ReorderModules(ctx context.Context, courseID string, orderedModuleIDs []string) error
	ReorderLessons(ctx context.Context, moduleID string, orderedLessonIDs []string) error
	MoveLesson(ctx context.Context, lessonID, newModuleID string) error
	CopyLesson(ctx context.Context, lesson model.Lesson, moduleID string) error
	DeleteLesson(ctx context.Context, lessonID string) error
	SaveStructureTemplate(ctx context.Context, courseID string, in model.StructureTemplateInput) (string, error)
}
