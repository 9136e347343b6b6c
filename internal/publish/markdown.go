package publish

import (
	"bytes"
	"fmt"
	"strings"

	"courseforge/internal/model"
)

// RenderCourseIndex renders the course overview: one section per module with
// links to the lesson pages under lessons/.
func RenderCourseIndex(course model.Course, modules []model.Module) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + displayTitle(course.Title))
	writeLn("")
	writeLn("- ID: " + course.ID)
	lessons := 0
	for _, m := range modules {
		lessons += len(m.Lessons)
	}
	writeLn(fmt.Sprintf("- Modules: %d", len(modules)))
	writeLn(fmt.Sprintf("- Lessons: %d", lessons))

	for i, m := range modules {
		writeLn("")
		writeLn(fmt.Sprintf("## %d. %s", i+1, displayTitle(m.Title)))
		writeLn("")
		if m.Description != nil && strings.TrimSpace(*m.Description) != "" {
			writeLn(strings.TrimSpace(*m.Description))
			writeLn("")
		}
		for j, l := range m.Lessons {
			suffix := ""
			if l.IsPreview {
				suffix = " (free preview)"
			}
			fmt.Fprintf(&buf, "%d. [%s](lessons/%s.md) · %s%s\n", j+1, displayTitle(l.Title), l.ID, l.ContentType, suffix)
		}
	}
	return buf.String()
}

// RenderLessonMarkdown renders a single lesson page.
func RenderLessonMarkdown(module model.Module, lesson model.Lesson) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + displayTitle(lesson.Title))
	writeLn("")
	writeLn("- Module: " + displayTitle(module.Title))
	writeLn("- Type: " + string(lesson.ContentType))
	if lesson.IsPreview {
		writeLn("- Preview: true")
	}

	body := strings.TrimSpace(lesson.Text())
	if body == "" {
		return buf.String()
	}
	writeLn("")
	writeLn(body)
	return buf.String()
}
