// Package gatewaytest provides an in-memory gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"courseforge/internal/gateway"
	"courseforge/internal/model"
)

// Call records one gateway invocation. Target is the primary id the call acted on.
type Call struct {
	Op     string
	Target string
	Args   []string
}

// Fake keeps one course in memory and mimics server-side numbering. Failures are
// injected per "op" or "op:target" key.
type Fake struct {
	mu      sync.Mutex
	course  model.Course
	modules []model.Module
	calls   []Call
	fail    map[string]error
	seq     int

	// Hook, when set, runs at the start of every call outside the lock.
	Hook func(op, target string)
}

func New(course model.Course, modules []model.Module) *Fake {
	return &Fake{course: course, modules: cloneModules(modules), fail: map[string]error{}}
}

// FailOn makes calls matching key return err. key is "op" or "op:target".
func (f *Fake) FailOn(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = err
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsFor returns the recorded calls for op.
func (f *Fake) CallsFor(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) Modules() []model.Module {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneModules(f.modules)
}

// SetModules replaces the server-side tree, e.g. to simulate another editor.
func (f *Fake) SetModules(modules []model.Module) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modules = cloneModules(modules)
}

func (f *Fake) begin(op, target string, args ...string) error {
	if f.Hook != nil {
		f.Hook(op, target)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Target: target, Args: args})
	if err, ok := f.fail[op+":"+target]; ok {
		return gateway.Wrap(op, err)
	}
	if err, ok := f.fail[op]; ok {
		return gateway.Wrap(op, err)
	}
	return nil
}

func (f *Fake) FetchStructure(_ context.Context, courseID string) (gateway.Structure, error) {
	if err := f.begin("fetchStructure", courseID); err != nil {
		return gateway.Structure{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if courseID != f.course.ID {
		return gateway.Structure{}, gateway.Wrap("fetchStructure", fmt.Errorf("course %s: %w", courseID, gateway.ErrNotFound))
	}
	return gateway.Structure{Course: f.course, Modules: cloneModules(f.modules)}, nil
}

func (f *Fake) SaveLesson(_ context.Context, lesson model.Lesson) error {
	if err := f.begin("saveLesson", lesson.ID, lesson.Title); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	mi, li := f.findLessonLocked(lesson.ID)
	if mi < 0 {
		return gateway.Wrap("saveLesson", fmt.Errorf("lesson %s: %w", lesson.ID, gateway.ErrNotFound))
	}
	cur := f.modules[mi].Lessons[li]
	cur.Title = lesson.Title
	cur.ContentType = lesson.ContentType
	cur.IsPreview = lesson.IsPreview
	cur.ContentText = copyStr(lesson.ContentText)
	f.modules[mi].Lessons[li] = cur
	return nil
}

func (f *Fake) CreateLessonFromTemplate(_ context.Context, moduleID string, tpl model.LessonTemplate) (string, error) {
	if err := f.begin("createLessonFromTemplate", moduleID, tpl.ID); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	mi := f.findModuleLocked(moduleID)
	if mi < 0 {
		return "", gateway.Wrap("createLessonFromTemplate", fmt.Errorf("module %s: %w", moduleID, gateway.ErrNotFound))
	}
	l := model.Lesson{
		ID:          f.nextIDLocked("les"),
		Title:       tpl.Title,
		ContentType: tpl.ContentType,
		IsPreview:   tpl.IsPreview,
	}
	if tpl.ContentText != "" {
		l.ContentText = model.StrPtr(tpl.ContentText)
	}
	f.appendLessonLocked(mi, l)
	return l.ID, nil
}

func (f *Fake) ReorderModules(_ context.Context, courseID string, ids []string) error {
	if err := f.begin("reorderModules", courseID, ids...); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rank := indexOf(ids)
	sort.SliceStable(f.modules, func(i, j int) bool { return rank(f.modules[i].ID) < rank(f.modules[j].ID) })
	for i := range f.modules {
		f.modules[i].Position = i
	}
	return nil
}

func (f *Fake) ReorderLessons(_ context.Context, moduleID string, ids []string) error {
	if err := f.begin("reorderLessons", moduleID, ids...); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	mi := f.findModuleLocked(moduleID)
	if mi < 0 {
		return gateway.Wrap("reorderLessons", fmt.Errorf("module %s: %w", moduleID, gateway.ErrNotFound))
	}
	rank := indexOf(ids)
	ls := f.modules[mi].Lessons
	sort.SliceStable(ls, func(i, j int) bool { return rank(ls[i].ID) < rank(ls[j].ID) })
	for i := range ls {
		ls[i].Position = i
	}
	return nil
}

func (f *Fake) MoveLesson(_ context.Context, lessonID, newModuleID string) error {
	if err := f.begin("moveLesson", lessonID, newModuleID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	mi, li := f.findLessonLocked(lessonID)
	to := f.findModuleLocked(newModuleID)
	if mi < 0 || to < 0 {
		return gateway.Wrap("moveLesson", fmt.Errorf("lesson %s -> %s: %w", lessonID, newModuleID, gateway.ErrNotFound))
	}
	l := f.modules[mi].Lessons[li]
	f.removeLessonLocked(mi, li)
	f.appendLessonLocked(to, l)
	return nil
}

func (f *Fake) CopyLesson(_ context.Context, lesson model.Lesson, moduleID string) error {
	if err := f.begin("copyLesson", lesson.ID, moduleID, lesson.Title); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	to := f.findModuleLocked(moduleID)
	if to < 0 {
		return gateway.Wrap("copyLesson", fmt.Errorf("module %s: %w", moduleID, gateway.ErrNotFound))
	}
	l := lesson
	l.ID = f.nextIDLocked("les")
	l.ContentText = copyStr(lesson.ContentText)
	f.appendLessonLocked(to, l)
	return nil
}

func (f *Fake) DeleteLesson(_ context.Context, lessonID string) error {
	if err := f.begin("deleteLesson", lessonID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	mi, li := f.findLessonLocked(lessonID)
	if mi < 0 {
		return gateway.Wrap("deleteLesson", fmt.Errorf("lesson %s: %w", lessonID, gateway.ErrNotFound))
	}
	f.removeLessonLocked(mi, li)
	return nil
}

func (f *Fake) SaveStructureTemplate(_ context.Context, courseID string, in model.StructureTemplateInput) (string, error) {
	if err := f.begin("saveStructureTemplate", courseID, in.Name); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextIDLocked("tpl"), nil
}

func (f *Fake) nextIDLocked(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-new-%d", prefix, f.seq)
}

func (f *Fake) findModuleLocked(id string) int {
	for i := range f.modules {
		if f.modules[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *Fake) findLessonLocked(id string) (int, int) {
	for mi := range f.modules {
		for li := range f.modules[mi].Lessons {
			if f.modules[mi].Lessons[li].ID == id {
				return mi, li
			}
		}
	}
	return -1, -1
}

func (f *Fake) appendLessonLocked(mi int, l model.Lesson) {
	l.Position = len(f.modules[mi].Lessons)
	f.modules[mi].Lessons = append(f.modules[mi].Lessons, l)
}

func (f *Fake) removeLessonLocked(mi, li int) {
	ls := f.modules[mi].Lessons
	ls = append(ls[:li:li], ls[li+1:]...)
	for i := range ls {
		ls[i].Position = i
	}
	f.modules[mi].Lessons = ls
}

func indexOf(ids []string) func(string) int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return func(id string) int {
		if i, ok := m[id]; ok {
			return i
		}
		return len(ids)
	}
}

func cloneModules(in []model.Module) []model.Module {
	out := make([]model.Module, len(in))
	for i, m := range in {
		m.Lessons = append([]model.Lesson(nil), m.Lessons...)
		for j := range m.Lessons {
			m.Lessons[j].ContentText = copyStr(m.Lessons[j].ContentText)
		}
		out[i] = m
	}
	return out
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Describe renders calls as "op:target" strings, handy in assertions.
func Describe(calls []Call) string {
	parts := make([]string, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, c.Op+":"+c.Target)
	}
	return strings.Join(parts, ",")
}
