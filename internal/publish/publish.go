package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"courseforge/internal/gateway"
	"courseforge/internal/model"
)

// Source is what WriteCourse needs from a store.
type Source interface {
	FetchStructure(ctx context.Context, courseID string) (gateway.Structure, error)
	SetCourseStatus(ctx context.Context, courseID, status string) (model.Course, error)
}

type WriteOptions struct {
	Overwrite bool

	// DryRun renders and checks readiness without writing or changing status.
	DryRun bool
}

type WriteResult struct {
	Written  []string        `json:"written"`
	Warnings []model.Warning `json:"warnings"`
	Course   model.Course    `json:"course"`
}

// NotReadyError is returned when readiness reports error-severity problems.
type NotReadyError struct {
	Blocking []model.Warning
}

func (e *NotReadyError) Error() string {
	msgs := make([]string, 0, len(e.Blocking))
	for _, w := range e.Blocking {
		msgs = append(msgs, w.Message)
	}
	return "course is not ready to publish: " + strings.Join(msgs, "; ")
}

// WriteCourse exports the course to toDir/courses/<id>/ as markdown and marks
// it published. Nothing is written while blocking problems remain.
func WriteCourse(ctx context.Context, src Source, courseID, toDir string, opt WriteOptions) (WriteResult, error) {
	if src == nil {
		return WriteResult{}, errors.New("missing source")
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return WriteResult{}, errors.New("missing course id")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)

	st, err := src.FetchStructure(ctx, courseID)
	if err != nil {
		return WriteResult{}, err
	}
	res := WriteResult{Warnings: ValidatePublishReadiness(st.Modules), Course: st.Course}
	if HasBlocking(res.Warnings) {
		var blocking []model.Warning
		for _, w := range res.Warnings {
			if w.Severity == model.SeverityError {
				blocking = append(blocking, w)
			}
		}
		return res, &NotReadyError{Blocking: blocking}
	}
	if opt.DryRun {
		return res, nil
	}

	courseDir := filepath.Join(toDir, "courses", courseID)
	lessonsDir := filepath.Join(courseDir, "lessons")
	if err := os.MkdirAll(lessonsDir, 0o755); err != nil {
		return res, err
	}

	indexPath := filepath.Join(courseDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderCourseIndex(st.Course, st.Modules)), opt.Overwrite); err != nil {
		return res, err
	}
	res.Written = append(res.Written, indexPath)
	for _, m := range st.Modules {
		for _, l := range m.Lessons {
			p := filepath.Join(lessonsDir, l.ID+".md")
			if err := writeFile(p, []byte(RenderLessonMarkdown(m, l)), opt.Overwrite); err != nil {
				return res, err
			}
			res.Written = append(res.Written, p)
		}
	}

	course, err := src.SetCourseStatus(ctx, courseID, string(model.CourseStatusPublished))
	if err != nil {
		return res, fmt.Errorf("set status: %w", err)
	}
	res.Course = course
	return res, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
