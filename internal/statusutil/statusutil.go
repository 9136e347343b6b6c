package statusutil

import (
	"fmt"
	"strings"

	"courseforge/internal/model"
)

func NormalizeCourseStatus(s string) (model.CourseStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft", "":
		return model.CourseStatusDraft, nil
	case "published", "publish", "live":
		return model.CourseStatusPublished, nil
	case "archived", "archive":
		return model.CourseStatusArchived, nil
	default:
		return "", fmt.Errorf("invalid course status %q (expected draft|published|archived)", s)
	}
}

// NormalizeContentType accepts a few common spellings ("reading" for text, "exam" for quiz).
func NormalizeContentType(s string) (model.ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "video", "lecture":
		return model.ContentVideo, nil
	case "text", "reading", "article":
		return model.ContentText, nil
	case "quiz", "exam":
		return model.ContentQuiz, nil
	case "assignment", "homework":
		return model.ContentAssignment, nil
	case "":
		return "", fmt.Errorf("invalid content type: empty")
	default:
		return "", fmt.Errorf("invalid content type %q (expected video|text|quiz|assignment)", s)
	}
}

// IsEditable reports whether structure edits are allowed for a course in status st.
func IsEditable(st model.CourseStatus) bool {
	return st != model.CourseStatusArchived
}
