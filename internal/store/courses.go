package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"courseforge/internal/gateway"
	"courseforge/internal/model"
	"courseforge/internal/statusutil"
)

func (s *Store) CreateCourse(ctx context.Context, title string) (model.Course, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Course{}, errors.New("course title is empty")
	}
	now := s.now().UTC()
	c := model.Course{ID: newID(prefixCourse), Title: title, Status: model.CourseStatusDraft, CreatedAt: now, UpdatedAt: now}
	q := s.builder().Insert("courses").
		Columns("id", "title", "status", "created_at", "updated_at").
		Values(c.ID, c.Title, string(c.Status), now.UnixMilli(), now.UnixMilli())
	if _, err := execQ(ctx, s.drv, q); err != nil {
		return model.Course{}, fmt.Errorf("insert course: %w", err)
	}
	return c, nil
}

func (s *Store) ListCourses(ctx context.Context) ([]model.Course, error) {
	q := s.builder().Select("id", "title", "status", "created_at", "updated_at").
		From(s.builder().Table("courses")).
		OrderBy("created_at", "id")
	var out []model.Course
	err := queryQ(ctx, s.drv, q, func(rows *entsql.Rows) error {
		c, err := scanCourse(rows)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return out, nil
}

func (s *Store) GetCourse(ctx context.Context, courseID string) (model.Course, error) {
	return s.getCourse(ctx, s.drv, courseID)
}

func (s *Store) getCourse(ctx context.Context, eq dialect.ExecQuerier, courseID string) (model.Course, error) {
	q := s.builder().Select("id", "title", "status", "created_at", "updated_at").
		From(s.builder().Table("courses")).
		Where(entsql.EQ("id", courseID))
	var (
		c     model.Course
		found bool
	)
	err := queryQ(ctx, eq, q, func(rows *entsql.Rows) error {
		var err error
		c, err = scanCourse(rows)
		found = err == nil
		return err
	})
	if err != nil {
		return model.Course{}, err
	}
	if !found {
		return model.Course{}, fmt.Errorf("course %s: %w", courseID, gateway.ErrNotFound)
	}
	return c, nil
}

func (s *Store) SetCourseStatus(ctx context.Context, courseID, status string) (model.Course, error) {
	st, err := statusutil.NormalizeCourseStatus(status)
	if err != nil {
		return model.Course{}, err
	}
	q := s.builder().Update("courses").
		Set("status", string(st)).
		Set("updated_at", s.now().UTC().UnixMilli()).
		Where(entsql.EQ("id", courseID))
	res, err := execQ(ctx, s.drv, q)
	if err != nil {
		return model.Course{}, fmt.Errorf("update course status: %w", err)
	}
	if n, err := affected(res); err != nil {
		return model.Course{}, err
	} else if n == 0 {
		return model.Course{}, fmt.Errorf("course %s: %w", courseID, gateway.ErrNotFound)
	}
	return s.GetCourse(ctx, courseID)
}

// CreateModule appends a module at the end of the course.
func (s *Store) CreateModule(ctx context.Context, courseID, title string, description *string) (model.Module, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Module{}, errors.New("module title is empty")
	}
	var m model.Module
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		if _, err := s.getCourse(ctx, tx, courseID); err != nil {
			return err
		}
		ids, err := s.moduleIDs(ctx, tx, courseID)
		if err != nil {
			return err
		}
		m = model.Module{ID: newID(prefixModule), Title: title, Description: description, Position: len(ids), Lessons: []model.Lesson{}}
		q := s.builder().Insert("modules").
			Columns("id", "course_id", "title", "description", "position").
			Values(m.ID, courseID, m.Title, nullable(m.Description), m.Position)
		if _, err := execQ(ctx, tx, q); err != nil {
			return err
		}
		return s.touchCourse(ctx, tx, courseID)
	})
	if err != nil {
		return model.Module{}, fmt.Errorf("create module: %w", err)
	}
	return m, nil
}

// CreateLesson appends a blank lesson at the end of the module.
func (s *Store) CreateLesson(ctx context.Context, moduleID, title string, contentType model.ContentType) (model.Lesson, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Lesson{}, errors.New("lesson title is empty")
	}
	if !contentType.Valid() {
		return model.Lesson{}, fmt.Errorf("invalid content type %q", contentType)
	}
	l := model.Lesson{ID: newID(prefixLesson), Title: title, ContentType: contentType}
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		return s.appendLesson(ctx, tx, moduleID, &l)
	})
	if err != nil {
		return model.Lesson{}, fmt.Errorf("create lesson: %w", err)
	}
	return l, nil
}

func scanCourse(rows *entsql.Rows) (model.Course, error) {
	var (
		c                  model.Course
		status             string
		created, updatedAt int64
	)
	if err := rows.Scan(&c.ID, &c.Title, &status, &created, &updatedAt); err != nil {
		return model.Course{}, err
	}
	c.Status = model.CourseStatus(status)
	c.CreatedAt = time.UnixMilli(created).UTC()
	c.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return c, nil
}

func (s *Store) touchCourse(ctx context.Context, eq dialect.ExecQuerier, courseID string) error {
	q := s.builder().Update("courses").
		Set("updated_at", s.now().UTC().UnixMilli()).
		Where(entsql.EQ("id", courseID))
	_, err := execQ(ctx, eq, q)
	return err
}
