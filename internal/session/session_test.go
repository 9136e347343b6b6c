package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"courseforge/internal/autosave"
	"courseforge/internal/bulk"
	"courseforge/internal/gateway/gatewaytest"
	"courseforge/internal/model"
	"courseforge/internal/mutate"
)

func strPtr(s string) *string { return &s }

func sampleModules() []model.Module {
	return []model.Module{
		{ID: "mod-a", Title: "Basics", Position: 0, Lessons: []model.Lesson{
			{ID: "les-1", Title: "Intro", Position: 0, ContentType: model.ContentVideo},
			{ID: "les-2", Title: "Reading", Position: 1, ContentType: model.ContentText, ContentText: strPtr("hello")},
			{ID: "les-3", Title: "Check", Position: 2, ContentType: model.ContentQuiz, ContentText: strPtr("q1")},
		}},
		{ID: "mod-b", Title: "Advanced", Position: 1, Lessons: []model.Lesson{
			{ID: "les-4", Title: "Project", Position: 0, ContentType: model.ContentAssignment, ContentText: strPtr("build")},
		}},
	}
}

func openTest(t *testing.T, modules []model.Module, debounce time.Duration) (*Session, *gatewaytest.Fake) {
	t.Helper()
	gw := gatewaytest.New(model.Course{ID: "crs-1", Title: "Go", Status: model.CourseStatusDraft}, modules)
	s, err := Open(context.Background(), gw, "crs-1", Options{Debounce: debounce})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	return s, gw
}

func waitForStatus(t *testing.T, s *Session, want autosave.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.SaveState().Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status = %s, want %s", s.SaveState().Status, want)
}

func TestUpdateLesson_CoalescesIntoOneSave(t *testing.T) {
	s, gw := openTest(t, sampleModules(), 40*time.Millisecond)

	if err := s.UpdateLesson("les-2", model.LessonPatch{Title: strPtr("First")}); err != nil {
		t.Fatalf("UpdateLesson: %v", err)
	}
	if err := s.UpdateLesson("les-2", model.LessonPatch{Title: strPtr("Second"), ContentText: strPtr("v2")}); err != nil {
		t.Fatalf("UpdateLesson: %v", err)
	}
	if got := s.SaveState().Status; got != autosave.StatusUnsaved {
		t.Fatalf("expected unsaved right after edit, got %s", got)
	}
	if l, _ := mutate.FindLesson(s.Modules(), "les-2"); l.Title != "Second" {
		t.Fatalf("local edit must be visible before the save, got %q", l.Title)
	}

	waitForStatus(t, s, autosave.StatusSaved)
	time.Sleep(80 * time.Millisecond)

	saves := gw.CallsFor("saveLesson")
	if len(saves) != 1 {
		t.Fatalf("expected exactly one saveLesson, got %d (%s)", len(saves), gatewaytest.Describe(saves))
	}
	if saves[0].Target != "les-2" || saves[0].Args[0] != "Second" {
		t.Fatalf("save must carry the latest values: %+v", saves[0])
	}
	if got := gw.Modules()[0].Lessons[1].Text(); got != "v2" {
		t.Fatalf("server text = %q", got)
	}
}

func TestUpdateLesson_InvalidPatch(t *testing.T) {
	s, _ := openTest(t, sampleModules(), time.Hour)

	err := s.UpdateLesson("les-1", model.LessonPatch{Title: strPtr("   ")})
	var ve mutate.ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("expected title ValidationError, got %v", err)
	}
	if s.CanUndo() {
		t.Fatalf("rejected patch must not enter history")
	}
	if s.SaveState().Status != autosave.StatusSaved {
		t.Fatalf("rejected patch must not mark unsaved")
	}
}

func TestSaveFailureSetsErrorSlotWithoutRetry(t *testing.T) {
	s, gw := openTest(t, sampleModules(), 20*time.Millisecond)
	gw.FailOn("saveLesson", errors.New("offline"))

	_ = s.UpdateLesson("les-1", model.LessonPatch{Title: strPtr("Welcome")})
	waitForStatus(t, s, autosave.StatusError)
	time.Sleep(60 * time.Millisecond)

	if n := len(gw.CallsFor("saveLesson")); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
	if s.Err() == nil {
		t.Fatalf("expected error slot to be set")
	}
}

func TestRunBulkAction_PartialFailureStillRefreshes(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)
	gw.FailOn("deleteLesson:les-2", errors.New("boom"))

	s.ToggleLessonSelection("les-1")
	s.ToggleLessonSelection("les-2")
	fetchesBefore := len(gw.CallsFor("fetchStructure"))

	err := s.RunBulkAction(context.Background(), bulk.ActionDelete)
	var pf *bulk.PartialFailureError
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailureError, got %v", err)
	}
	if s.Err() == nil || s.Err().Error() != "Failed to delete selected lessons" {
		t.Fatalf("unexpected error slot: %v", s.Err())
	}
	if len(s.Selection()) != 0 {
		t.Fatalf("selection must be cleared, got %v", s.Selection())
	}
	if got := len(gw.CallsFor("fetchStructure")) - fetchesBefore; got != 1 {
		t.Fatalf("expected exactly one fetchStructure after bulk, got %d", got)
	}
	if _, ok := mutate.FindLesson(s.Modules(), "les-1"); ok {
		t.Fatalf("les-1 was deleted on the server; the reload must drop it")
	}
	if _, ok := mutate.FindLesson(s.Modules(), "les-2"); !ok {
		t.Fatalf("les-2 failed to delete and must still be present")
	}
}

func TestRunBulkAction_MoveNeedsTarget(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)
	s.ToggleLessonSelection("les-1")
	callsBefore := len(gw.Calls())

	err := s.RunBulkAction(context.Background(), bulk.ActionMove)
	var ve mutate.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(gw.Calls()) != callsBefore {
		t.Fatalf("no gateway calls expected")
	}
	if len(s.Selection()) != 1 {
		t.Fatalf("selection must survive a rejected action")
	}
}

func TestRunBulkAction_Copy(t *testing.T) {
	s, _ := openTest(t, sampleModules(), time.Hour)
	s.ToggleLessonSelection("les-2")
	s.SetMoveTarget("mod-b")

	if err := s.RunBulkAction(context.Background(), bulk.ActionCopy); err != nil {
		t.Fatalf("RunBulkAction: %v", err)
	}
	lessons := s.Modules()[1].Lessons
	if len(lessons) != 2 || lessons[1].Title != "Reading (Copy)" || lessons[1].Position != 1 {
		t.Fatalf("unexpected lessons after copy: %+v", lessons)
	}
	if s.MoveTarget() != "mod-b" {
		t.Fatalf("move target should survive when the module still exists")
	}
}

func TestApplyTemplate_NoModulesBlocks(t *testing.T) {
	s, gw := openTest(t, nil, time.Hour)

	_, err := s.ApplyTemplate(context.Background(), "reading", "")
	var ve mutate.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected blocking ValidationError, got %v", err)
	}
	if n := len(gw.CallsFor("createLessonFromTemplate")); n != 0 {
		t.Fatalf("expected no gateway call, got %d", n)
	}
	if s.Err() != nil {
		t.Fatalf("validation errors stay inline, got slot %v", s.Err())
	}
}

func TestApplyTemplate_UsesSelectedModuleAndSelectsNewLesson(t *testing.T) {
	s, _ := openTest(t, sampleModules(), time.Hour)
	s.SelectLesson("les-4")

	res, err := s.ApplyTemplate(context.Background(), "reading", "")
	if err != nil {
		t.Fatalf("ApplyTemplate: %v", err)
	}
	if res.ModuleID != "mod-b" {
		t.Fatalf("expected selected lesson's module, got %s", res.ModuleID)
	}
	if s.SelectedLessonID() != res.LessonID {
		t.Fatalf("new lesson should be selected, got %q", s.SelectedLessonID())
	}
	if n := len(s.Modules()[1].Lessons); n != 2 {
		t.Fatalf("expected reload to show the new lesson, got %d lessons", n)
	}
}

func TestUndoRedoPersistsRestoredContent(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)
	ctx := context.Background()

	_ = s.UpdateLesson("les-1", model.LessonPatch{Title: strPtr("Welcome")})
	if err := s.SaveNow(ctx); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if !s.Undo() {
		t.Fatalf("expected undo to succeed")
	}
	if l, _ := mutate.FindLesson(s.Modules(), "les-1"); l.Title != "Intro" {
		t.Fatalf("undo did not restore title: %q", l.Title)
	}
	if s.SaveState().Status != autosave.StatusUnsaved {
		t.Fatalf("undo of a saved edit must mark unsaved")
	}
	if err := s.SaveNow(ctx); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if got := gw.Modules()[0].Lessons[0].Title; got != "Intro" {
		t.Fatalf("server title = %q, want Intro", got)
	}

	if !s.Redo() {
		t.Fatalf("expected redo to succeed")
	}
	if s.Redo() {
		t.Fatalf("redo at the boundary must be a no-op")
	}
	if l, _ := mutate.FindLesson(s.Modules(), "les-1"); l.Title != "Welcome" {
		t.Fatalf("redo did not reapply title: %q", l.Title)
	}
}

func TestReorderModuleTree(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)
	ctx := context.Background()

	if err := s.OnReorder(ctx, "crs-1", "mod-a", "mod-b"); err != nil {
		t.Fatalf("OnReorder: %v", err)
	}
	mods := s.Modules()
	if mods[0].ID != "mod-b" || mods[0].Position != 0 || mods[1].Position != 1 {
		t.Fatalf("unexpected order: %+v", mods)
	}
	calls := gw.CallsFor("reorderModules")
	if len(calls) != 1 || calls[0].Args[0] != "mod-b" {
		t.Fatalf("unexpected reorder calls: %+v", calls)
	}

	// Undo restores the original order and persists it on the next save.
	s.Undo()
	if err := s.SaveNow(ctx); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if got := gw.Modules()[0].ID; got != "mod-a" {
		t.Fatalf("server order not restored, first module %s", got)
	}
}

func TestReorderRaceIsSilent(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)
	ctx := context.Background()

	if err := s.ReorderLessonTree(ctx, "mod-a", "les-gone", "les-1"); err != nil {
		t.Fatalf("stale reorder must not error: %v", err)
	}
	if err := s.OnReorder(ctx, "mod-gone", "les-1", "les-2"); err != nil {
		t.Fatalf("unknown container must not error: %v", err)
	}
	if n := len(gw.CallsFor("reorderLessons")); n != 0 {
		t.Fatalf("no gateway call expected, got %d", n)
	}
	if s.Err() != nil || s.CanUndo() {
		t.Fatalf("race must leave no error and no history entry")
	}
}

func TestReorderFailureSetsErrorAndReloads(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)
	gw.FailOn("reorderLessons", errors.New("503"))

	err := s.OnReorder(context.Background(), "mod-a", "les-3", "les-1")
	if err == nil || s.Err() == nil {
		t.Fatalf("expected failure in return and error slot")
	}
	if got := s.Modules()[0].Lessons[0].ID; got != "les-1" {
		t.Fatalf("reload should restore server order, first lesson %s", got)
	}
}

func TestRefreshPrunesStaleState(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)

	s.SelectLesson("les-4")
	s.ToggleLessonSelection("les-4")
	s.ToggleLessonSelection("les-1")
	s.SetMoveTarget("mod-b")
	s.ToggleModuleCollapse("mod-a")
	_ = s.UpdateLesson("les-1", model.LessonPatch{Title: strPtr("Welcome")})

	gw.SetModules(sampleModules()[:1])
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if s.SelectedLessonID() != "" || s.MoveTarget() != "" {
		t.Fatalf("stale selected lesson or move target kept")
	}
	if sel := s.Selection(); len(sel) != 1 || sel[0] != "les-1" {
		t.Fatalf("selection = %v, want [les-1]", sel)
	}
	if s.CanUndo() || s.CanRedo() {
		t.Fatalf("refresh must reset history")
	}
	if !s.Modules()[0].Collapsed {
		t.Fatalf("collapse state should survive refresh")
	}
	if s.SaveState().Status != autosave.StatusSaved {
		t.Fatalf("refresh resets autosave status")
	}
}

func TestRefreshFlushesPendingEdits(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)

	_ = s.UpdateLesson("les-3", model.LessonPatch{ContentText: strPtr("q1, q2")})
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := gw.Modules()[0].Lessons[2].Text(); got != "q1, q2" {
		t.Fatalf("pending edit lost on refresh, server has %q", got)
	}
	if l, _ := mutate.FindLesson(s.Modules(), "les-3"); l.Text() != "q1, q2" {
		t.Fatalf("reloaded tree lost the edit")
	}
}

func TestToggleModuleCollapseSkipsHistory(t *testing.T) {
	s, _ := openTest(t, sampleModules(), time.Hour)
	s.ToggleModuleCollapse("mod-b")
	if !s.Modules()[1].Collapsed {
		t.Fatalf("expected collapsed")
	}
	if s.CanUndo() {
		t.Fatalf("collapse must not be undoable")
	}
}

func TestWarningsTrackEdits(t *testing.T) {
	s, _ := openTest(t, sampleModules(), time.Hour)
	if n := len(s.Warnings()); n != 0 {
		t.Fatalf("expected clean tree, got %v", s.Warnings())
	}
	_ = s.UpdateLesson("les-2", model.LessonPatch{ContentText: strPtr("")})
	ws := s.Warnings()
	if len(ws) != 1 || ws[0].ID != "les-2" || ws[0].Severity != model.SeverityWarning {
		t.Fatalf("unexpected warnings: %+v", ws)
	}
	s.Undo()
	if n := len(s.Warnings()); n != 0 {
		t.Fatalf("undo should clear the warning, got %v", s.Warnings())
	}
}

func TestSaveAsTemplate(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)

	if _, err := s.SaveAsTemplate(context.Background(), " ", nil); err == nil {
		t.Fatalf("blank name must be rejected")
	}
	id, err := s.SaveAsTemplate(context.Background(), "Two modules", strPtr("starter"))
	if err != nil || id == "" {
		t.Fatalf("SaveAsTemplate: %q %v", id, err)
	}
	if calls := gw.CallsFor("saveStructureTemplate"); len(calls) != 1 || calls[0].Args[0] != "Two modules" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestKeyBindings(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)
	ctx := context.Background()

	_ = s.UpdateLesson("les-1", model.LessonPatch{Title: strPtr("Welcome")})
	if !s.HandleKey(ctx, "ctrl+s") {
		t.Fatalf("ctrl+s should be bound")
	}
	if n := len(gw.CallsFor("saveLesson")); n != 1 {
		t.Fatalf("save shortcut should flush, got %d saves", n)
	}
	if !s.HandleKey(ctx, "ctrl+z") {
		t.Fatalf("ctrl+z should be bound")
	}
	if l, _ := mutate.FindLesson(s.Modules(), "les-1"); l.Title != "Intro" {
		t.Fatalf("undo shortcut did not undo")
	}
	if !s.HandleKey(ctx, "ctrl+shift+z") {
		t.Fatalf("ctrl+shift+z should be bound")
	}
	if l, _ := mutate.FindLesson(s.Modules(), "les-1"); l.Title != "Welcome" {
		t.Fatalf("redo shortcut did not redo")
	}
	if s.HandleKey(ctx, "ctrl+q") {
		t.Fatalf("unbound key must report false")
	}

	s.Close()
	if s.KeysInstalled() || s.HandleKey(ctx, "ctrl+z") {
		t.Fatalf("bindings must be removed on close")
	}
}

func TestCloseCancelsPendingSave(t *testing.T) {
	s, gw := openTest(t, sampleModules(), 20*time.Millisecond)
	_ = s.UpdateLesson("les-1", model.LessonPatch{Title: strPtr("Welcome")})
	s.Close()
	time.Sleep(60 * time.Millisecond)
	if n := len(gw.CallsFor("saveLesson")); n != 0 {
		t.Fatalf("no save expected after close, got %d", n)
	}
}

func TestOpenFailsOnFetchError(t *testing.T) {
	gw := gatewaytest.New(model.Course{ID: "crs-1"}, nil)
	if _, err := Open(context.Background(), gw, "crs-other", Options{}); err == nil {
		t.Fatalf("expected fetch error")
	}
}

func TestReorderFailureKeepsPendingEdit(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)
	if err := s.UpdateLesson("les-4", model.LessonPatch{Title: strPtr("Edited")}); err != nil {
		t.Fatalf("UpdateLesson: %v", err)
	}
	gw.FailOn("reorderLessons", errors.New("503"))

	if err := s.OnReorder(context.Background(), "mod-a", "les-3", "les-1"); err == nil {
		t.Fatalf("expected reorder failure")
	}
	if got := gw.Modules()[1].Lessons[0].Title; got != "Edited" {
		t.Fatalf("pending edit never reached the server, title %q", got)
	}
	if l, _ := mutate.FindLesson(s.Modules(), "les-4"); l.Title != "Edited" {
		t.Fatalf("reload dropped the edit locally, title %q", l.Title)
	}
	if got := s.Modules()[0].Lessons[0].ID; got != "les-1" {
		t.Fatalf("server order should be restored, first lesson %s", got)
	}
}

func TestRefreshWaitsForSaveInFlight(t *testing.T) {
	s, gw := openTest(t, sampleModules(), 10*time.Millisecond)
	started := make(chan struct{}, 1)
	gw.Hook = func(op, _ string) {
		if op == "saveLesson" {
			started <- struct{}{}
			time.Sleep(150 * time.Millisecond)
		}
	}

	if err := s.UpdateLesson("les-2", model.LessonPatch{Title: strPtr("Edited")}); err != nil {
		t.Fatalf("UpdateLesson: %v", err)
	}
	<-started
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if l, _ := mutate.FindLesson(s.Modules(), "les-2"); l.Title != "Edited" {
		t.Fatalf("refresh fetched before the running save landed, title %q", l.Title)
	}
	if s.SaveState().Status != autosave.StatusSaved {
		t.Fatalf("status = %s", s.SaveState().Status)
	}
}

func TestRunBulkDeletePrunesWhenReloadFails(t *testing.T) {
	s, gw := openTest(t, sampleModules(), time.Hour)
	s.SelectLesson("les-1")
	s.ToggleLessonSelection("les-1")
	s.ToggleLessonSelection("les-3")
	gw.FailOn("fetchStructure", errors.New("503"))

	if err := s.RunBulkAction(context.Background(), bulk.ActionDelete); err == nil {
		t.Fatalf("expected the failed reload to be reported")
	}
	lessons := s.Modules()[0].Lessons
	if len(lessons) != 1 || lessons[0].ID != "les-2" || lessons[0].Position != 0 {
		t.Fatalf("deleted lessons should be gone locally: %+v", lessons)
	}
	if s.SelectedLessonID() != "" || s.CanUndo() {
		t.Fatalf("selected lesson and history must not point at deleted lessons")
	}
}
