package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"entgo.io/ent/dialect"
	"golang.org/x/sync/errgroup"

	"courseforge/internal/gateway"
	"courseforge/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "courseforge.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seed creates a course with modules "Basics" (3 lessons) and "Advanced" (1 lesson).
func seed(t *testing.T, s *Store) (model.Course, []model.Module) {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCourse(ctx, "Go for teams")
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	a, err := s.CreateModule(ctx, c.ID, "Basics", nil)
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	b, err := s.CreateModule(ctx, c.ID, "Advanced", model.StrPtr("deeper"))
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	for _, in := range []struct {
		mod   string
		title string
		ct    model.ContentType
	}{
		{a.ID, "Intro", model.ContentVideo},
		{a.ID, "Reading", model.ContentText},
		{a.ID, "Check", model.ContentQuiz},
		{b.ID, "Project", model.ContentAssignment},
	} {
		if _, err := s.CreateLesson(ctx, in.mod, in.title, in.ct); err != nil {
			t.Fatalf("CreateLesson: %v", err)
		}
	}
	st, err := s.FetchStructure(ctx, c.ID)
	if err != nil {
		t.Fatalf("FetchStructure: %v", err)
	}
	return c, st.Modules
}

func assertPositions(t *testing.T, modules []model.Module) {
	t.Helper()
	for i, m := range modules {
		if m.Position != i {
			t.Fatalf("module %s position=%d want %d", m.ID, m.Position, i)
		}
		for j, l := range m.Lessons {
			if l.Position != j {
				t.Fatalf("lesson %s position=%d want %d", l.ID, l.Position, j)
			}
		}
	}
}

func TestFetchStructure(t *testing.T) {
	s := openTestStore(t)
	c, modules := seed(t, s)

	if len(modules) != 2 || modules[0].Title != "Basics" || modules[1].Title != "Advanced" {
		t.Fatalf("unexpected modules: %+v", modules)
	}
	if len(modules[0].Lessons) != 3 || modules[0].Lessons[2].Title != "Check" {
		t.Fatalf("unexpected lessons: %+v", modules[0].Lessons)
	}
	if modules[1].Description == nil || *modules[1].Description != "deeper" {
		t.Fatalf("expected description to round trip")
	}
	assertPositions(t, modules)

	_, err := s.FetchStructure(context.Background(), "crs-missing")
	var ne *gateway.NetworkError
	if !errors.As(err, &ne) || !gateway.IsNotFound(err) {
		t.Fatalf("expected wrapped not-found, got %v", err)
	}
	_ = c
}

func TestSaveLesson(t *testing.T) {
	s := openTestStore(t)
	c, modules := seed(t, s)
	ctx := context.Background()

	l := modules[0].Lessons[1]
	l.Title = "Reading, revised"
	l.ContentText = model.StrPtr("body")
	l.IsPreview = true
	if err := s.SaveLesson(ctx, l); err != nil {
		t.Fatalf("SaveLesson: %v", err)
	}
	st, _ := s.FetchStructure(ctx, c.ID)
	got := st.Modules[0].Lessons[1]
	if got.Title != "Reading, revised" || got.Text() != "body" || !got.IsPreview {
		t.Fatalf("lesson not saved: %+v", got)
	}

	if err := s.SaveLesson(ctx, model.Lesson{ID: "les-missing", Title: "x", ContentType: model.ContentText}); !gateway.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReorderModulesAndLessons(t *testing.T) {
	s := openTestStore(t)
	c, modules := seed(t, s)
	ctx := context.Background()

	if err := s.ReorderModules(ctx, c.ID, []string{modules[1].ID, modules[0].ID}); err != nil {
		t.Fatalf("ReorderModules: %v", err)
	}
	basics := modules[0]
	order := []string{basics.Lessons[2].ID, basics.Lessons[0].ID, basics.Lessons[1].ID}
	if err := s.ReorderLessons(ctx, basics.ID, order); err != nil {
		t.Fatalf("ReorderLessons: %v", err)
	}

	st, _ := s.FetchStructure(ctx, c.ID)
	if st.Modules[0].ID != modules[1].ID {
		t.Fatalf("module order not applied")
	}
	got := st.Modules[1].Lessons
	for i, id := range order {
		if got[i].ID != id {
			t.Fatalf("lesson order = %v, want %v", got, order)
		}
	}
	assertPositions(t, st.Modules)
}

func TestMoveCopyDelete(t *testing.T) {
	s := openTestStore(t)
	c, modules := seed(t, s)
	ctx := context.Background()
	basics, adv := modules[0], modules[1]

	if err := s.MoveLesson(ctx, basics.Lessons[0].ID, adv.ID); err != nil {
		t.Fatalf("MoveLesson: %v", err)
	}
	src := basics.Lessons[1]
	if err := s.CopyLesson(ctx, model.Lesson{ID: src.ID, Title: src.Title + " (Copy)", ContentType: src.ContentType}, adv.ID); err != nil {
		t.Fatalf("CopyLesson: %v", err)
	}
	if err := s.DeleteLesson(ctx, basics.Lessons[2].ID); err != nil {
		t.Fatalf("DeleteLesson: %v", err)
	}

	st, _ := s.FetchStructure(ctx, c.ID)
	if n := len(st.Modules[0].Lessons); n != 1 {
		t.Fatalf("expected 1 lesson left in Basics, got %d", n)
	}
	advLessons := st.Modules[1].Lessons
	if len(advLessons) != 3 || advLessons[1].ID != basics.Lessons[0].ID || advLessons[2].Title != "Reading (Copy)" {
		t.Fatalf("unexpected Advanced lessons: %+v", advLessons)
	}
	if advLessons[2].ID == src.ID {
		t.Fatalf("copy must get a new id")
	}
	assertPositions(t, st.Modules)

	if err := s.DeleteLesson(ctx, "les-missing"); !gateway.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.MoveLesson(ctx, advLessons[0].ID, "mod-missing"); !gateway.IsNotFound(err) {
		t.Fatalf("expected not found for missing target, got %v", err)
	}
}

func TestCreateLessonFromTemplate(t *testing.T) {
	s := openTestStore(t)
	c, modules := seed(t, s)
	ctx := context.Background()

	id, err := s.CreateLessonFromTemplate(ctx, modules[1].ID, model.LessonTemplate{
		ID: "reading", Name: "Reading", Title: "New reading", ContentType: model.ContentText, ContentText: "## Overview",
	})
	if err != nil {
		t.Fatalf("CreateLessonFromTemplate: %v", err)
	}
	st, _ := s.FetchStructure(ctx, c.ID)
	last := st.Modules[1].Lessons[len(st.Modules[1].Lessons)-1]
	if last.ID != id || last.Position != 1 || last.Text() != "## Overview" {
		t.Fatalf("unexpected created lesson: %+v", last)
	}
}

func TestStructureTemplatesAndCourseStatus(t *testing.T) {
	s := openTestStore(t)
	c, _ := seed(t, s)
	ctx := context.Background()

	id, err := s.SaveStructureTemplate(ctx, c.ID, model.StructureTemplateInput{Name: "Two-part course"})
	if err != nil {
		t.Fatalf("SaveStructureTemplate: %v", err)
	}
	list, err := s.ListStructureTemplates(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListStructureTemplates: %v", err)
	}
	if len(list) != 1 || list[0].ID != id || len(list[0].Modules) != 2 || len(list[0].Modules[0].Lessons) != 3 {
		t.Fatalf("unexpected templates: %+v", list)
	}

	got, err := s.SetCourseStatus(ctx, c.ID, "published")
	if err != nil || got.Status != model.CourseStatusPublished {
		t.Fatalf("SetCourseStatus: %+v %v", got, err)
	}
	courses, err := s.ListCourses(ctx)
	if err != nil || len(courses) != 1 {
		t.Fatalf("ListCourses: %+v %v", courses, err)
	}
}

func TestMergeOrder(t *testing.T) {
	got := mergeOrder([]string{"a", "b", "c", "d"}, []string{"c", "x", "a", "c"})
	want := []string{"c", "a", "b", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mergeOrder = %v, want %v", got, want)
		}
	}
}

func TestConcurrentWritesKeepPositionsContiguous(t *testing.T) {
	s := openTestStore(t)
	c, modules := seed(t, s)
	ctx := context.Background()
	basics, adv := modules[0], modules[1]

	var g errgroup.Group
	for _, l := range basics.Lessons {
		g.Go(func() error { return s.CopyLesson(ctx, l, adv.ID) })
	}
	g.Go(func() error { return s.MoveLesson(ctx, basics.Lessons[0].ID, adv.ID) })
	g.Go(func() error { return s.DeleteLesson(ctx, basics.Lessons[1].ID) })
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent writes: %v", err)
	}

	st, err := s.FetchStructure(ctx, c.ID)
	if err != nil {
		t.Fatalf("FetchStructure: %v", err)
	}
	if n := len(st.Modules[1].Lessons); n != 5 {
		t.Fatalf("expected 5 lessons in Advanced, got %d", n)
	}
	assertPositions(t, st.Modules)
}

func TestModuleLockQuery(t *testing.T) {
	s := &Store{dialect: dialect.Postgres}
	query, args := s.moduleLockQuery([]string{"mod-b", "mod-a", "mod-b"}).Query()
	if !strings.HasSuffix(query, "FOR UPDATE") {
		t.Fatalf("expected a row lock, got %q", query)
	}
	if len(args) != 2 || args[0] != "mod-a" || args[1] != "mod-b" {
		t.Fatalf("lock ids must be sorted and unique, got %v", args)
	}
}
