// Package session holds the state of one course-structure editing session: the
// lesson tree with undo/redo history, the selection set, the autosave controller
// and the single user-visible error slot.
//
// A Session is created with Open and must be released with Close. All methods are
// safe for concurrent use; gateway calls are made without holding the state lock
// and their results are applied afterward, so the latest assignment wins.
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"courseforge/internal/autosave"
	"courseforge/internal/bulk"
	"courseforge/internal/gateway"
	"courseforge/internal/history"
	"courseforge/internal/logger"
	"courseforge/internal/model"
	"courseforge/internal/mutate"
	"courseforge/internal/publish"
	"courseforge/internal/templates"
)

type Options struct {
	Logger       *logger.Logger
	Debounce     time.Duration
	HistoryLimit int
	Templates    []model.LessonTemplate
	Keymap       Keymap
	Now          func() time.Time

	// OnChange is called after any state change, outside the session lock.
	OnChange func()
}

type Session struct {
	gw        gateway.Gateway
	courseID  string
	log       *logger.Logger
	templates []model.LessonTemplate
	limit     int
	saver     *autosave.Controller
	onChange  func()

	mu               sync.Mutex
	course           model.Course
	hist             history.State
	selection        map[string]bool
	moveTarget       string
	dirty            map[string]bool
	dirtyModuleOrder bool
	dirtyLessonOrder map[string]bool
	warnings         []model.Warning
	err              error
	keymap           Keymap
	keysInstalled    bool
	closed           bool
}

// Open loads the course structure and starts a session with key bindings installed.
func Open(ctx context.Context, gw gateway.Gateway, courseID string, opts Options) (*Session, error) {
	if gw == nil {
		return nil, errors.New("session: nil gateway")
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, mutate.ValidationError{Field: "courseId", Reason: "empty"}
	}
	st, err := gw.FetchStructure(ctx, courseID)
	if err != nil {
		return nil, err
	}

	tpls := opts.Templates
	if len(tpls) == 0 {
		tpls = templates.Builtin()
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = history.DefaultLimit
	}
	km := opts.Keymap
	if len(km.bindings) == 0 {
		km = DefaultKeymap()
	}

	s := &Session{
		gw:               gw,
		courseID:         courseID,
		log:              opts.Logger.With("courseId", courseID),
		templates:        tpls,
		limit:            limit,
		onChange:         opts.OnChange,
		course:           st.Course,
		hist:             history.New(model.Snapshot{Modules: st.Modules}, limit),
		selection:        map[string]bool{},
		dirty:            map[string]bool{},
		dirtyLessonOrder: map[string]bool{},
		keymap:           km,
		keysInstalled:    true,
	}
	s.warnings = publish.ValidatePublishReadiness(st.Modules)
	s.saver = autosave.New(autosave.Options{
		Debounce: opts.Debounce,
		Logger:   s.log,
		Now:      opts.Now,
		OnChange: func(autosave.State) { s.notify() },
	})
	s.log.Debug("session opened", "modules", len(st.Modules))
	return s, nil
}

// Close cancels any pending autosave and removes the key bindings. Unsaved edits
// are dropped; call SaveNow first to keep them.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.keysInstalled = false
	s.mu.Unlock()
	s.saver.Dispose()
	s.log.Debug("session closed")
}

func (s *Session) CourseID() string { return s.courseID }

func (s *Session) Course() model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.course
}

// Snapshot returns the current tree and selected lesson. The modules are shared
// with the history and must be treated as read-only.
func (s *Session) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Present
}

func (s *Session) Modules() []model.Module { return s.Snapshot().Modules }

func (s *Session) SelectedLessonID() string { return s.Snapshot().SelectedLessonID }

// Selection returns the bulk selection set, sorted.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.selection)
}

func (s *Session) IsSelected(lessonID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection[lessonID]
}

func (s *Session) MoveTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveTarget
}

// Warnings returns the publish-readiness warnings for the current tree.
func (s *Session) Warnings() []model.Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Warning(nil), s.warnings...)
}

func (s *Session) SaveState() autosave.State { return s.saver.State() }

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

// Err returns the error slot: the most recent gateway-facing failure, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) DismissError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Templates() []model.LessonTemplate {
	return append([]model.LessonTemplate(nil), s.templates...)
}

// SelectLesson sets the focused lesson. It is not recorded in history. An empty
// id clears the focus; unknown ids are ignored.
func (s *Session) SelectLesson(lessonID string) {
	s.mu.Lock()
	if lessonID != "" {
		if _, ok := mutate.FindLesson(s.hist.Present.Modules, lessonID); !ok {
			s.mu.Unlock()
			return
		}
	}
	snap := s.hist.Present
	snap.SelectedLessonID = lessonID
	s.hist = history.SetPresent(s.hist, snap)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) ToggleLessonSelection(lessonID string) {
	s.mu.Lock()
	if _, ok := mutate.FindLesson(s.hist.Present.Modules, lessonID); !ok {
		s.mu.Unlock()
		return
	}
	if s.selection[lessonID] {
		delete(s.selection, lessonID)
	} else {
		s.selection[lessonID] = true
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) ClearSelections() {
	s.mu.Lock()
	s.selection = map[string]bool{}
	s.mu.Unlock()
	s.notify()
}

// SetMoveTarget picks the module that bulk move/copy writes into. An empty id
// clears it; unknown ids are ignored.
func (s *Session) SetMoveTarget(moduleID string) {
	s.mu.Lock()
	if moduleID != "" {
		if _, ok := mutate.FindModule(s.hist.Present.Modules, moduleID); !ok {
			s.mu.Unlock()
			return
		}
	}
	s.moveTarget = moduleID
	s.mu.Unlock()
	s.notify()
}

// ToggleModuleCollapse flips display state without touching the undo chain.
func (s *Session) ToggleModuleCollapse(moduleID string) {
	s.mu.Lock()
	snap := s.hist.Present
	snap.Modules = mutate.WithModuleUpdate(snap.Modules, moduleID, func(m model.Module) model.Module {
		m.Collapsed = !m.Collapsed
		return m
	})
	s.hist = history.SetPresent(s.hist, snap)
	s.mu.Unlock()
	s.notify()
}

// UpdateLesson merges patch into the lesson, records history and schedules an
// autosave. Invalid patches return a ValidationError and change nothing.
func (s *Session) UpdateLesson(lessonID string, patch model.LessonPatch) error {
	if err := mutate.ValidateLessonPatch(patch); err != nil {
		return err
	}
	s.mu.Lock()
	cur, ok := mutate.FindLesson(s.hist.Present.Modules, lessonID)
	if !ok {
		s.mu.Unlock()
		return mutate.NotFoundError{Kind: "lesson", ID: lessonID}
	}
	next := mutate.ApplyLessonPatch(cur, patch)
	if mutate.SameContent(cur, next) {
		s.mu.Unlock()
		return nil
	}
	snap := s.hist.Present
	snap.Modules = mutate.WithLessonUpdate(snap.Modules, lessonID, func(model.Lesson) model.Lesson { return next })
	s.pushLocked(snap)
	s.dirty[lessonID] = true
	s.mu.Unlock()

	s.saver.MarkUnsaved()
	s.saver.Schedule(s.saveDirty)
	s.notify()
	return nil
}

// ReorderModuleTree moves activeID to overID's slot and persists the new order.
// Stale ids are a silent no-op. A failed write sets the error slot, saves pending
// edits and reloads.
func (s *Session) ReorderModuleTree(ctx context.Context, activeID, overID string) error {
	s.mu.Lock()
	before := s.hist.Present.Modules
	next, err := mutate.ReorderModules(before, activeID, overID)
	if err != nil || sameOrder(mutate.OrderedModuleIDs(before), mutate.OrderedModuleIDs(next)) {
		s.mu.Unlock()
		if err != nil {
			s.log.Debug("module reorder skipped", "error", err)
		}
		return nil
	}
	snap := s.hist.Present
	snap.Modules = next
	s.pushLocked(snap)
	ids := mutate.OrderedModuleIDs(next)
	s.mu.Unlock()
	s.notify()

	if err := s.gw.ReorderModules(ctx, s.courseID, ids); err != nil {
		s.setErr(err)
		_ = s.refresh(ctx, true)
		return err
	}
	return nil
}

// ReorderLessonTree is ReorderModuleTree for the lessons of one module.
func (s *Session) ReorderLessonTree(ctx context.Context, moduleID, activeID, overID string) error {
	s.mu.Lock()
	before := s.hist.Present.Modules
	next, err := mutate.ReorderLessons(before, moduleID, activeID, overID)
	if err != nil || sameOrder(mutate.OrderedLessonIDs(before, moduleID), mutate.OrderedLessonIDs(next, moduleID)) {
		s.mu.Unlock()
		if err != nil {
			s.log.Debug("lesson reorder skipped", "error", err)
		}
		return nil
	}
	snap := s.hist.Present
	snap.Modules = next
	s.pushLocked(snap)
	ids := mutate.OrderedLessonIDs(next, moduleID)
	s.mu.Unlock()
	s.notify()

	if err := s.gw.ReorderLessons(ctx, moduleID, ids); err != nil {
		s.setErr(err)
		_ = s.refresh(ctx, true)
		return err
	}
	return nil
}

// OnReorder is the drag-and-drop capability: containerID is the course id for a
// module drag or a module id for a lesson drag.
func (s *Session) OnReorder(ctx context.Context, containerID, activeID, overID string) error {
	if containerID == s.courseID {
		return s.ReorderModuleTree(ctx, activeID, overID)
	}
	s.mu.Lock()
	_, ok := mutate.FindModule(s.hist.Present.Modules, containerID)
	s.mu.Unlock()
	if !ok {
		s.log.Debug("reorder for unknown container", "container", containerID)
		return nil
	}
	return s.ReorderLessonTree(ctx, containerID, activeID, overID)
}

// RunBulkAction applies action to every selected lesson concurrently, then clears
// the selection and reloads the tree whether or not every call succeeded.
func (s *Session) RunBulkAction(ctx context.Context, action bulk.Action) error {
	s.mu.Lock()
	ids := sortedKeys(s.selection)
	target := s.moveTarget
	modules := s.hist.Present.Modules
	s.mu.Unlock()

	if len(ids) == 0 {
		return mutate.ValidationError{Field: "selection", Reason: "select at least one lesson"}
	}
	if action.NeedsTarget() && target == "" {
		return mutate.ValidationError{Field: "targetModuleId", Reason: "choose a target module to " + string(action) + " lessons"}
	}

	// Pending edits go out first; the reload below would discard them.
	_ = s.flushPending(ctx)

	res, err := bulk.Run(ctx, s.gw, action, ids, target, modules)
	var ve mutate.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	if err != nil {
		s.setErr(err)
	}
	s.log.Info("bulk action finished", "action", string(action), "attempted", res.Attempted, "failed", res.Failed)

	if action == bulk.ActionDelete {
		s.pruneDeleted(res.Succeeded)
	}
	s.ClearSelections()
	if rerr := s.refresh(ctx, false); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// ApplyTemplate creates a lesson from templateID in explicitModuleID, or in the
// selected lesson's module, or in the first module, then reloads and selects it.
func (s *Session) ApplyTemplate(ctx context.Context, templateID, explicitModuleID string) (templates.Result, error) {
	s.mu.Lock()
	modules := s.hist.Present.Modules
	selected := s.hist.Present.SelectedLessonID
	s.mu.Unlock()

	_ = s.flushPending(ctx)

	res, err := templates.Apply(ctx, s.gw, s.templates, templateID, modules, selected, explicitModuleID)
	if err != nil {
		var ve mutate.ValidationError
		if !errors.As(err, &ve) {
			s.setErr(err)
		}
		return res, err
	}
	if err := s.refresh(ctx, false); err != nil {
		return res, err
	}
	s.SelectLesson(res.LessonID)
	return res, nil
}

// Undo steps back one history entry. Lessons whose content changed are saved by
// the next autosave, along with any order change.
func (s *Session) Undo() bool {
	return s.step(history.Undo)
}

func (s *Session) Redo() bool {
	return s.step(history.Redo)
}

func (s *Session) step(move func(history.State) (history.State, bool)) bool {
	s.mu.Lock()
	prev := s.hist.Present
	next, ok := move(s.hist)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.hist = next
	s.warnings = publish.ValidatePublishReadiness(next.Present.Modules)
	d := diffTrees(prev.Modules, next.Present.Modules)
	for _, id := range d.lessons {
		s.dirty[id] = true
	}
	if d.moduleOrder {
		s.dirtyModuleOrder = true
	}
	for _, id := range d.lessonOrder {
		s.dirtyLessonOrder[id] = true
	}
	s.mu.Unlock()

	if !d.empty() {
		s.saver.MarkUnsaved()
		s.saver.Schedule(s.saveDirty)
	}
	s.notify()
	return true
}

// SaveNow writes every pending edit immediately.
func (s *Session) SaveNow(ctx context.Context) error {
	return s.saver.Flush(ctx, s.saveDirty)
}

// SaveAsTemplate stores the current course structure as a reusable template.
func (s *Session) SaveAsTemplate(ctx context.Context, name string, description *string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", mutate.ValidationError{Field: "name", Reason: "template name is required"}
	}
	_ = s.flushPending(ctx)
	id, err := s.gw.SaveStructureTemplate(ctx, s.courseID, model.StructureTemplateInput{Name: name, Description: description})
	if err != nil {
		s.setErr(err)
		return "", err
	}
	s.log.Info("structure template saved", "templateId", id)
	return id, nil
}

// Refresh flushes pending edits, then replaces the tree with the server's,
// resetting history and pruning selection state.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refresh(ctx, true)
}

func (s *Session) refresh(ctx context.Context, flush bool) error {
	if flush {
		_ = s.flushPending(ctx)
	}
	st, err := s.gw.FetchStructure(ctx, s.courseID)
	if err != nil {
		s.setErr(err)
		return err
	}

	s.mu.Lock()
	modules := keepCollapsed(s.hist.Present.Modules, st.Modules)
	selected := s.hist.Present.SelectedLessonID
	if _, ok := mutate.FindLesson(modules, selected); !ok {
		selected = ""
	}
	present := mutate.LessonIDs(modules)
	for id := range s.selection {
		if !present[id] {
			delete(s.selection, id)
		}
	}
	if _, ok := mutate.FindModule(modules, s.moveTarget); !ok {
		s.moveTarget = ""
	}
	s.course = st.Course
	s.hist = history.New(model.Snapshot{Modules: modules, SelectedLessonID: selected}, s.limit)
	s.dirty = map[string]bool{}
	s.dirtyModuleOrder = false
	s.dirtyLessonOrder = map[string]bool{}
	s.warnings = publish.ValidatePublishReadiness(modules)
	s.mu.Unlock()

	s.saver.Reset()
	s.notify()
	return nil
}

// pruneDeleted drops lessons the server already deleted, so the tree stays right
// even when the reload that follows fails.
func (s *Session) pruneDeleted(ids []string) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	s.mu.Lock()
	snap := s.hist.Present
	snap.Modules = mutate.RemoveLessons(snap.Modules, gone)
	if gone[snap.SelectedLessonID] {
		snap.SelectedLessonID = ""
	}
	s.hist = history.New(snap, s.limit)
	for id := range gone {
		delete(s.dirty, id)
	}
	s.warnings = publish.ValidatePublishReadiness(snap.Modules)
	s.mu.Unlock()
	s.notify()
}

// flushPending runs a pending autosave, if any, and waits out one already in
// flight so a following fetch sees its writes.
func (s *Session) flushPending(ctx context.Context) error {
	return s.saver.Flush(ctx, nil)
}

// saveDirty persists every dirty lesson using the tree as it is now, then any
// order changes recorded by undo/redo. Items that fail stay dirty.
func (s *Session) saveDirty(ctx context.Context) error {
	s.mu.Lock()
	modules := s.hist.Present.Modules
	lessonIDs := sortedKeys(s.dirty)
	moduleOrder := s.dirtyModuleOrder
	lessonOrder := sortedKeys(s.dirtyLessonOrder)
	s.dirty = map[string]bool{}
	s.dirtyModuleOrder = false
	s.dirtyLessonOrder = map[string]bool{}
	s.mu.Unlock()

	var failed []string
	var firstErr error
	fail := func(id string, err error) {
		failed = append(failed, id)
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, id := range lessonIDs {
		l, ok := mutate.FindLesson(modules, id)
		if !ok {
			continue
		}
		if err := s.gw.SaveLesson(ctx, l); err != nil {
			fail(id, err)
		}
	}
	moduleOrderFailed := false
	if moduleOrder {
		if err := s.gw.ReorderModules(ctx, s.courseID, mutate.OrderedModuleIDs(modules)); err != nil {
			moduleOrderFailed = true
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	var failedOrder []string
	for _, moduleID := range lessonOrder {
		ids := mutate.OrderedLessonIDs(modules, moduleID)
		if ids == nil {
			continue
		}
		if err := s.gw.ReorderLessons(ctx, moduleID, ids); err != nil {
			failedOrder = append(failedOrder, moduleID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr == nil {
		if len(lessonIDs) > 0 || moduleOrder || len(lessonOrder) > 0 {
			s.log.Debug("autosave wrote changes", "lessons", len(lessonIDs))
		}
		return nil
	}

	s.mu.Lock()
	for _, id := range failed {
		s.dirty[id] = true
	}
	if moduleOrderFailed {
		s.dirtyModuleOrder = true
	}
	for _, id := range failedOrder {
		s.dirtyLessonOrder[id] = true
	}
	s.err = firstErr
	s.mu.Unlock()
	s.log.Warn("save failed", "error", firstErr)
	return firstErr
}

func (s *Session) pushLocked(snap model.Snapshot) {
	s.hist = history.Push(s.hist, snap)
	s.warnings = publish.ValidatePublishReadiness(snap.Modules)
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.log.Warn("operation failed", "error", err)
	s.notify()
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortStrings(xs []string) []string {
	sort.Strings(xs)
	return xs
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// keepCollapsed carries display-only collapse flags over to a freshly fetched tree.
func keepCollapsed(old, fresh []model.Module) []model.Module {
	collapsed := map[string]bool{}
	for _, m := range old {
		if m.Collapsed {
			collapsed[m.ID] = true
		}
	}
	if len(collapsed) == 0 {
		return fresh
	}
	out := make([]model.Module, len(fresh))
	for i, m := range fresh {
		m.Collapsed = collapsed[m.ID]
		out[i] = m
	}
	return out
}
