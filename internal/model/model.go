package model

import "time"

type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

type ContentType string

const (
	ContentVideo      ContentType = "video"
	ContentText       ContentType = "text"
	ContentQuiz       ContentType = "quiz"
	ContentAssignment ContentType = "assignment"
)

// ContentTypes lists the lesson content types in display order.
func ContentTypes() []ContentType {
	return []ContentType{ContentVideo, ContentText, ContentQuiz, ContentAssignment}
}

func (c ContentType) Valid() bool {
	switch c {
	case ContentVideo, ContentText, ContentQuiz, ContentAssignment:
		return true
	default:
		return false
	}
}

// NeedsText reports whether lessons of this type are expected to carry contentText.
func (c ContentType) NeedsText() bool {
	switch c {
	case ContentText, ContentQuiz, ContentAssignment:
		return true
	default:
		return false
	}
}

type Course struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Status    CourseStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt,omitempty"`
}

type Module struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Position    int     `json:"position"`

	// Collapsed is display state only; it never travels to the store.
	Collapsed bool `json:"-"`

	Lessons []Lesson `json:"lessons"`
}

type Lesson struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Position    int         `json:"position"`
	ContentType ContentType `json:"contentType"`
	IsPreview   bool        `json:"isPreview"`
	ContentText *string     `json:"contentText,omitempty"`
}

// Text returns the lesson content or "" when unset.
func (l Lesson) Text() string {
	if l.ContentText == nil {
		return ""
	}
	return *l.ContentText
}

// Snapshot is the unit recorded by the undo/redo history.
type Snapshot struct {
	Modules          []Module `json:"modules"`
	SelectedLessonID string   `json:"selectedLessonId,omitempty"`
}

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type WarningScope string

const (
	ScopeCourse WarningScope = "course"
	ScopeModule WarningScope = "module"
	ScopeLesson WarningScope = "lesson"
)

// Warning is derived from the tree and never persisted.
type Warning struct {
	ID       string       `json:"id"`
	Scope    WarningScope `json:"scope"`
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
}

// LessonPatch is a typed partial update. Nil fields are left untouched.
type LessonPatch struct {
	Title       *string      `json:"title,omitempty"`
	ContentType *ContentType `json:"contentType,omitempty"`
	IsPreview   *bool        `json:"isPreview,omitempty"`
	ContentText *string      `json:"contentText,omitempty"`
}

func (p LessonPatch) Empty() bool {
	return p.Title == nil && p.ContentType == nil && p.IsPreview == nil && p.ContentText == nil
}

// LessonTemplate seeds a new lesson.
type LessonTemplate struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Title       string      `json:"title" yaml:"title"`
	ContentType ContentType `json:"contentType" yaml:"contentType"`
	ContentText string      `json:"contentText,omitempty" yaml:"contentText,omitempty"`
	IsPreview   bool        `json:"isPreview,omitempty" yaml:"isPreview,omitempty"`
}

type StructureTemplateInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// StructureTemplate is a saved copy of a course's module/lesson skeleton.
type StructureTemplate struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Modules     []Module  `json:"modules"`
	CreatedAt   time.Time `json:"createdAt"`
}

func StrPtr(s string) *string { return &s }
