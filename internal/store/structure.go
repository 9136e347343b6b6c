package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"courseforge/internal/gateway"
	"courseforge/internal/model"
)

var _ gateway.Gateway = (*Store)(nil)

var lessonColumns = []string{"id", "module_id", "title", "position", "content_type", "is_preview", "content_text"}

func (s *Store) FetchStructure(ctx context.Context, courseID string) (gateway.Structure, error) {
	c, err := s.getCourse(ctx, s.drv, courseID)
	if err != nil {
		return gateway.Structure{}, gateway.Wrap("fetchStructure", err)
	}
	modules, err := s.loadModules(ctx, s.drv, courseID)
	if err != nil {
		return gateway.Structure{}, gateway.Wrap("fetchStructure", err)
	}
	return gateway.Structure{Course: c, Modules: modules}, nil
}

func (s *Store) loadModules(ctx context.Context, eq dialect.ExecQuerier, courseID string) ([]model.Module, error) {
	mq := s.builder().Select("id", "title", "description", "position").
		From(s.builder().Table("modules")).
		Where(entsql.EQ("course_id", courseID)).
		OrderBy("position", "id")
	modules := []model.Module{}
	err := queryQ(ctx, eq, mq, func(rows *entsql.Rows) error {
		var (
			m    model.Module
			desc sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Title, &desc, &m.Position); err != nil {
			return err
		}
		m.Description = fromNull(desc)
		m.Lessons = []model.Lesson{}
		modules = append(modules, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	if len(modules) == 0 {
		return modules, nil
	}

	byModule := make(map[string]int, len(modules))
	ids := make([]string, len(modules))
	for i, m := range modules {
		byModule[m.ID] = i
		ids[i] = m.ID
	}
	lq := s.builder().Select(lessonColumns...).
		From(s.builder().Table("lessons")).
		Where(entsql.In("module_id", toStrings(ids)...)).
		OrderBy("module_id", "position", "id")
	err = queryQ(ctx, eq, lq, func(rows *entsql.Rows) error {
		l, moduleID, err := scanLesson(rows)
		if err != nil {
			return err
		}
		if i, ok := byModule[moduleID]; ok {
			modules[i].Lessons = append(modules[i].Lessons, l)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}
	return modules, nil
}

func (s *Store) SaveLesson(ctx context.Context, lesson model.Lesson) error {
	if !lesson.ContentType.Valid() {
		return gateway.Wrap("saveLesson", fmt.Errorf("lesson %s: invalid content type %q", lesson.ID, lesson.ContentType))
	}
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		q := s.builder().Update("lessons").
			Set("title", strings.TrimSpace(lesson.Title)).
			Set("content_type", string(lesson.ContentType)).
			Set("is_preview", lesson.IsPreview).
			Set("content_text", nullable(lesson.ContentText)).
			Where(entsql.EQ("id", lesson.ID))
		res, err := execQ(ctx, tx, q)
		if err != nil {
			return err
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("lesson %s: %w", lesson.ID, gateway.ErrNotFound)
		}
		return s.touchCourseOfLesson(ctx, tx, lesson.ID)
	})
	return gateway.Wrap("saveLesson", err)
}

func (s *Store) CreateLessonFromTemplate(ctx context.Context, moduleID string, tpl model.LessonTemplate) (string, error) {
	l := model.Lesson{
		ID:          newID(prefixLesson),
		Title:       strings.TrimSpace(tpl.Title),
		ContentType: tpl.ContentType,
		IsPreview:   tpl.IsPreview,
	}
	if tpl.ContentText != "" {
		l.ContentText = model.StrPtr(tpl.ContentText)
	}
	if l.Title == "" {
		l.Title = tpl.Name
	}
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		return s.appendLesson(ctx, tx, moduleID, &l)
	})
	if err != nil {
		return "", gateway.Wrap("createLessonFromTemplate", err)
	}
	return l.ID, nil
}

// ReorderModules applies the given order. Unknown ids are ignored and modules
// missing from the list keep their relative order after the listed ones.
func (s *Store) ReorderModules(ctx context.Context, courseID string, orderedModuleIDs []string) error {
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		if _, err := s.getCourse(ctx, tx, courseID); err != nil {
			return err
		}
		current, err := s.moduleIDs(ctx, tx, courseID)
		if err != nil {
			return err
		}
		for i, id := range mergeOrder(current, orderedModuleIDs) {
			q := s.builder().Update("modules").Set("position", i).Where(entsql.EQ("id", id))
			if _, err := execQ(ctx, tx, q); err != nil {
				return err
			}
		}
		return s.touchCourse(ctx, tx, courseID)
	})
	return gateway.Wrap("reorderModules", err)
}

func (s *Store) ReorderLessons(ctx context.Context, moduleID string, orderedLessonIDs []string) error {
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		if _, err := s.moduleCourse(ctx, tx, moduleID); err != nil {
			return err
		}
		if err := s.lockModules(ctx, tx, moduleID); err != nil {
			return err
		}
		current, err := s.lessonIDs(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		return s.setLessonPositions(ctx, tx, mergeOrder(current, orderedLessonIDs))
	})
	return gateway.Wrap("reorderLessons", err)
}

// MoveLesson appends the lesson to newModuleID and closes the gap it left.
func (s *Store) MoveLesson(ctx context.Context, lessonID, newModuleID string) error {
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		if _, err := s.moduleCourse(ctx, tx, newModuleID); err != nil {
			return err
		}
		from, err := s.lockLessonModule(ctx, tx, lessonID, newModuleID)
		if err != nil {
			return err
		}
		if from == newModuleID {
			return nil
		}
		target, err := s.lessonIDs(ctx, tx, newModuleID)
		if err != nil {
			return err
		}
		q := s.builder().Update("lessons").
			Set("module_id", newModuleID).
			Set("position", len(target)).
			Where(entsql.EQ("id", lessonID))
		if _, err := execQ(ctx, tx, q); err != nil {
			return err
		}
		rest, err := s.lessonIDs(ctx, tx, from)
		if err != nil {
			return err
		}
		return s.setLessonPositions(ctx, tx, rest)
	})
	return gateway.Wrap("moveLesson", err)
}

func (s *Store) CopyLesson(ctx context.Context, lesson model.Lesson, moduleID string) error {
	l := lesson
	l.ID = newID(prefixLesson)
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		return s.appendLesson(ctx, tx, moduleID, &l)
	})
	return gateway.Wrap("copyLesson", err)
}

func (s *Store) DeleteLesson(ctx context.Context, lessonID string) error {
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		moduleID, err := s.lockLessonModule(ctx, tx, lessonID)
		if err != nil {
			return err
		}
		if _, err := execQ(ctx, tx, s.builder().Delete("lessons").Where(entsql.EQ("id", lessonID))); err != nil {
			return err
		}
		rest, err := s.lessonIDs(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		return s.setLessonPositions(ctx, tx, rest)
	})
	return gateway.Wrap("deleteLesson", err)
}

func (s *Store) SaveStructureTemplate(ctx context.Context, courseID string, in model.StructureTemplateInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", gateway.Wrap("saveStructureTemplate", fmt.Errorf("template name is empty"))
	}
	id := newID(prefixTemplate)
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		if _, err := s.getCourse(ctx, tx, courseID); err != nil {
			return err
		}
		modules, err := s.loadModules(ctx, tx, courseID)
		if err != nil {
			return err
		}
		b, err := json.Marshal(modules)
		if err != nil {
			return err
		}
		q := s.builder().Insert("structure_templates").
			Columns("id", "course_id", "name", "description", "modules_json", "created_at").
			Values(id, courseID, name, nullable(in.Description), string(b), s.now().UTC().UnixMilli())
		_, err = execQ(ctx, tx, q)
		return err
	})
	if err != nil {
		return "", gateway.Wrap("saveStructureTemplate", err)
	}
	return id, nil
}

func (s *Store) ListStructureTemplates(ctx context.Context, courseID string) ([]model.StructureTemplate, error) {
	q := s.builder().Select("id", "course_id", "name", "description", "modules_json", "created_at").
		From(s.builder().Table("structure_templates")).
		OrderBy("created_at", "id")
	if strings.TrimSpace(courseID) != "" {
		q = q.Where(entsql.EQ("course_id", courseID))
	}
	var out []model.StructureTemplate
	err := queryQ(ctx, s.drv, q, func(rows *entsql.Rows) error {
		var (
			t       model.StructureTemplate
			desc    sql.NullString
			raw     string
			created int64
		)
		if err := rows.Scan(&t.ID, &t.CourseID, &t.Name, &desc, &raw, &created); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(raw), &t.Modules); err != nil {
			return fmt.Errorf("template %s: decode modules: %w", t.ID, err)
		}
		t.Description = fromNull(desc)
		t.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list structure templates: %w", err)
	}
	return out, nil
}

func (s *Store) appendLesson(ctx context.Context, tx dialect.Tx, moduleID string, l *model.Lesson) error {
	if !l.ContentType.Valid() {
		return fmt.Errorf("invalid content type %q", l.ContentType)
	}
	courseID, err := s.moduleCourse(ctx, tx, moduleID)
	if err != nil {
		return err
	}
	if err := s.lockModules(ctx, tx, moduleID); err != nil {
		return err
	}
	ids, err := s.lessonIDs(ctx, tx, moduleID)
	if err != nil {
		return err
	}
	l.Position = len(ids)
	q := s.builder().Insert("lessons").
		Columns(lessonColumns...).
		Values(l.ID, moduleID, l.Title, l.Position, string(l.ContentType), l.IsPreview, nullable(l.ContentText))
	if _, err := execQ(ctx, tx, q); err != nil {
		return err
	}
	return s.touchCourse(ctx, tx, courseID)
}

// lockModules takes row locks on the given modules so concurrent writers to the
// same module renumber one after another. SQLite runs on a single connection and
// needs none.
func (s *Store) lockModules(ctx context.Context, eq dialect.ExecQuerier, moduleIDs ...string) error {
	if s.dialect != dialect.Postgres || len(moduleIDs) == 0 {
		return nil
	}
	_, err := scanIDs(ctx, eq, s.moduleLockQuery(moduleIDs))
	return err
}

// moduleLockQuery locks in id order to keep two movers from deadlocking.
func (s *Store) moduleLockQuery(moduleIDs []string) *entsql.Selector {
	ids := slices.Compact(slices.Sorted(slices.Values(moduleIDs)))
	return s.builder().Select("id").From(s.builder().Table("modules")).
		Where(entsql.In("id", toStrings(ids)...)).
		OrderBy("id").
		ForUpdate()
}

// lockLessonModule locks the lesson's module (plus extra) and returns it. The
// lesson is re-read after locking in case a concurrent move got there first.
func (s *Store) lockLessonModule(ctx context.Context, tx dialect.Tx, lessonID string, extra ...string) (string, error) {
	for range 3 {
		from, err := s.lessonModule(ctx, tx, lessonID)
		if err != nil {
			return "", err
		}
		if err := s.lockModules(ctx, tx, append([]string{from}, extra...)...); err != nil {
			return "", err
		}
		now, err := s.lessonModule(ctx, tx, lessonID)
		if err != nil {
			return "", err
		}
		if now == from {
			return from, nil
		}
	}
	return "", fmt.Errorf("lesson %s: module changed during update", lessonID)
}

func (s *Store) moduleIDs(ctx context.Context, eq dialect.ExecQuerier, courseID string) ([]string, error) {
	q := s.builder().Select("id").From(s.builder().Table("modules")).
		Where(entsql.EQ("course_id", courseID)).
		OrderBy("position", "id")
	return scanIDs(ctx, eq, q)
}

func (s *Store) lessonIDs(ctx context.Context, eq dialect.ExecQuerier, moduleID string) ([]string, error) {
	q := s.builder().Select("id").From(s.builder().Table("lessons")).
		Where(entsql.EQ("module_id", moduleID)).
		OrderBy("position", "id")
	return scanIDs(ctx, eq, q)
}

func (s *Store) moduleCourse(ctx context.Context, eq dialect.ExecQuerier, moduleID string) (string, error) {
	q := s.builder().Select("course_id").From(s.builder().Table("modules")).Where(entsql.EQ("id", moduleID))
	ids, err := scanIDs(ctx, eq, q)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("module %s: %w", moduleID, gateway.ErrNotFound)
	}
	return ids[0], nil
}

func (s *Store) lessonModule(ctx context.Context, eq dialect.ExecQuerier, lessonID string) (string, error) {
	q := s.builder().Select("module_id").From(s.builder().Table("lessons")).Where(entsql.EQ("id", lessonID))
	ids, err := scanIDs(ctx, eq, q)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("lesson %s: %w", lessonID, gateway.ErrNotFound)
	}
	return ids[0], nil
}

func (s *Store) touchCourseOfLesson(ctx context.Context, eq dialect.ExecQuerier, lessonID string) error {
	moduleID, err := s.lessonModule(ctx, eq, lessonID)
	if err != nil {
		return err
	}
	courseID, err := s.moduleCourse(ctx, eq, moduleID)
	if err != nil {
		return err
	}
	return s.touchCourse(ctx, eq, courseID)
}

func (s *Store) setLessonPositions(ctx context.Context, eq dialect.ExecQuerier, ids []string) error {
	for i, id := range ids {
		q := s.builder().Update("lessons").Set("position", i).Where(entsql.EQ("id", id))
		if _, err := execQ(ctx, eq, q); err != nil {
			return err
		}
	}
	return nil
}

func scanIDs(ctx context.Context, eq dialect.ExecQuerier, q entsql.Querier) ([]string, error) {
	var out []string
	err := queryQ(ctx, eq, q, func(rows *entsql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		out = append(out, id)
		return nil
	})
	return out, err
}

func scanLesson(rows *entsql.Rows) (model.Lesson, string, error) {
	var (
		l        model.Lesson
		moduleID string
		ct       string
		text     sql.NullString
	)
	if err := rows.Scan(&l.ID, &moduleID, &l.Title, &l.Position, &ct, &l.IsPreview, &text); err != nil {
		return model.Lesson{}, "", err
	}
	l.ContentType = model.ContentType(ct)
	l.ContentText = fromNull(text)
	return l, moduleID, nil
}

// mergeOrder returns current reordered by want: listed ids first in the given
// order, then the rest in their current order. Ids not in current are dropped.
func mergeOrder(current, want []string) []string {
	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = true
	}
	out := make([]string, 0, len(current))
	used := make(map[string]bool, len(current))
	for _, id := range want {
		if known[id] && !used[id] {
			used[id] = true
			out = append(out, id)
		}
	}
	for _, id := range current {
		if !used[id] {
			out = append(out, id)
		}
	}
	return out
}
