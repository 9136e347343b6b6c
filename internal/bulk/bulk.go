// Package bulk fans one action out over a set of selected lessons.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"courseforge/internal/gateway"
	"courseforge/internal/model"
	"courseforge/internal/mutate"
)

type Action string

const (
	ActionMove   Action = "move"
	ActionCopy   Action = "copy"
	ActionDelete Action = "delete"
)

// CopySuffix is appended to the title of copied lessons.
const CopySuffix = " (Copy)"

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionMove, ActionCopy, ActionDelete:
		return a, nil
	default:
		return "", mutate.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown bulk action %q (expected move|copy|delete)", s)}
	}
}

// NeedsTarget reports whether the action requires a target module.
func (a Action) NeedsTarget() bool { return a == ActionMove || a == ActionCopy }

// PartialFailureError reports that at least one per-lesson call failed. Calls that
// succeeded are not rolled back.
type PartialFailureError struct {
	Action Action
	Failed int
	Total  int
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("Failed to %s selected lessons", e.Action)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// Result summarizes a completed fan-out.
type Result struct {
	Action    Action
	Attempted int
	Failed    int
	// Succeeded lists the lesson ids whose call went through, in input order.
	Succeeded []string
}

// Run issues one gateway call per selected lesson concurrently and waits for all
// of them to settle. modules is the local tree, used to resolve lesson content
// for copies.
func Run(ctx context.Context, gw gateway.Gateway, action Action, selectedIDs []string, targetModuleID string, modules []model.Module) (Result, error) {
	res := Result{Action: action}
	if action.NeedsTarget() && strings.TrimSpace(targetModuleID) == "" {
		return res, mutate.ValidationError{Field: "targetModuleId", Reason: fmt.Sprintf("choose a target module to %s lessons", action)}
	}
	switch action {
	case ActionMove, ActionCopy, ActionDelete:
	default:
		return res, mutate.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown bulk action %q", action)}
	}

	ids := dedupe(selectedIDs)
	res.Attempted = len(ids)
	if len(ids) == 0 {
		return res, nil
	}

	errs := make([]error, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = runOne(ctx, gw, action, id, targetModuleID, modules)
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for i, err := range errs {
		if err != nil {
			failed = append(failed, err)
			continue
		}
		res.Succeeded = append(res.Succeeded, ids[i])
	}
	res.Failed = len(failed)
	if len(failed) > 0 {
		return res, &PartialFailureError{Action: action, Failed: len(failed), Total: len(ids), Err: errors.Join(failed...)}
	}
	return res, nil
}

func runOne(ctx context.Context, gw gateway.Gateway, action Action, lessonID, targetModuleID string, modules []model.Module) error {
	switch action {
	case ActionMove:
		return gw.MoveLesson(ctx, lessonID, targetModuleID)
	case ActionDelete:
		return gw.DeleteLesson(ctx, lessonID)
	case ActionCopy:
		l, ok := mutate.FindLesson(modules, lessonID)
		if !ok {
			return mutate.NotFoundError{Kind: "lesson", ID: lessonID}
		}
		return gw.CopyLesson(ctx, CopyOf(l), targetModuleID)
	}
	return nil
}

// CopyOf returns the payload sent for a copied lesson.
func CopyOf(l model.Lesson) model.Lesson {
	out := l
	out.Title = l.Title + CopySuffix
	if l.ContentText != nil {
		out.ContentText = model.StrPtr(*l.ContentText)
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
