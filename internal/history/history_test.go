package history

import (
	"fmt"
	"reflect"
	"testing"

	"courseforge/internal/model"
)

func snap(label string) model.Snapshot {
	return model.Snapshot{
		Modules:          []model.Module{{ID: "mod-" + label, Title: label}},
		SelectedLessonID: "les-" + label,
	}
}

func TestUndoRestoresPreviousPresent(t *testing.T) {
	s0 := snap("0")
	s1 := snap("1")

	h := Push(New(s0, 10), s1)
	undone, ok := Undo(h)
	if !ok {
		t.Fatalf("expected undo to succeed")
	}
	if !reflect.DeepEqual(undone.Present, s0) {
		t.Fatalf("present=%#v want %#v", undone.Present, s0)
	}

	redone, ok := Redo(undone)
	if !ok {
		t.Fatalf("expected redo to succeed")
	}
	if !reflect.DeepEqual(redone.Present, s1) {
		t.Fatalf("present=%#v want %#v", redone.Present, s1)
	}
}

func TestUndoRedoAtBoundaryIsNoop(t *testing.T) {
	h := New(snap("0"), 10)
	if got, ok := Undo(h); ok || !reflect.DeepEqual(got, h) {
		t.Fatalf("expected no-op undo")
	}
	if got, ok := Redo(h); ok || !reflect.DeepEqual(got, h) {
		t.Fatalf("expected no-op redo")
	}
	if h.CanUndo() || h.CanRedo() {
		t.Fatalf("fresh history must have empty stacks")
	}
}

func TestPushClearsFuture(t *testing.T) {
	h := Push(Push(New(snap("0"), 10), snap("1")), snap("2"))
	h, _ = Undo(h)
	if !h.CanRedo() {
		t.Fatalf("expected redo available")
	}
	h = Push(h, snap("3"))
	if h.CanRedo() {
		t.Fatalf("push must clear the redo stack")
	}
	if h.Present.SelectedLessonID != "les-3" {
		t.Fatalf("unexpected present: %#v", h.Present)
	}
}

func TestPushBeyondLimitEvictsOldest(t *testing.T) {
	h := New(snap("start"), 50)
	for i := 0; i < 60; i++ {
		h = Push(h, snap(fmt.Sprint(i)))
	}
	if len(h.Past) != 50 {
		t.Fatalf("past len=%d want 50", len(h.Past))
	}

	undos := 0
	for {
		next, ok := Undo(h)
		if !ok {
			break
		}
		h = next
		undos++
	}
	if undos != 50 {
		t.Fatalf("undos=%d want 50", undos)
	}
	// 60 pushes + the initial present = 61 states; the oldest 11 were evicted.
	if h.Present.SelectedLessonID != "les-9" {
		t.Fatalf("oldest reachable=%q want les-9", h.Present.SelectedLessonID)
	}
}

func TestSetPresentKeepsStacks(t *testing.T) {
	h := Push(New(snap("0"), 10), snap("1"))
	collapsed := snap("1")
	collapsed.Modules[0].Collapsed = true

	h2 := SetPresent(h, collapsed)
	if len(h2.Past) != 1 || h2.CanRedo() {
		t.Fatalf("stacks changed: past=%d future=%d", len(h2.Past), len(h2.Future))
	}
	if !h2.Present.Modules[0].Collapsed {
		t.Fatalf("present not replaced")
	}
	if h.Present.Modules[0].Collapsed {
		t.Fatalf("original state mutated")
	}
}

func TestUndoDoesNotAliasStacks(t *testing.T) {
	h := Push(Push(New(snap("0"), 10), snap("1")), snap("2"))
	a, _ := Undo(h)
	b := Push(a, snap("x"))
	c, _ := Undo(h)
	if c.Present.SelectedLessonID != "les-1" || len(b.Past) != 2 {
		t.Fatalf("states interfere: c=%q b.past=%d", c.Present.SelectedLessonID, len(b.Past))
	}
	if b.Past[1].SelectedLessonID != "les-1" || h.Past[1].SelectedLessonID != "les-1" {
		t.Fatalf("unexpected stacks after branching")
	}
}
