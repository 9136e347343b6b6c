package templates

import (
	"context"
	"errors"
	"testing"

	"courseforge/internal/gateway/gatewaytest"
	"courseforge/internal/model"
	"courseforge/internal/mutate"
)

func tree() []model.Module {
	return []model.Module{
		{ID: "mod-a", Position: 0, Lessons: []model.Lesson{{ID: "les-1", Position: 0, ContentType: model.ContentVideo}}},
		{ID: "mod-b", Position: 1, Lessons: []model.Lesson{{ID: "les-4", Position: 0, ContentType: model.ContentText}}},
	}
}

func TestTargetModule(t *testing.T) {
	cases := []struct {
		name     string
		selected string
		explicit string
		want     string
	}{
		{"explicit wins", "les-1", "mod-b", "mod-b"},
		{"selected lesson module", "les-4", "", "mod-b"},
		{"first module fallback", "", "", "mod-a"},
		{"stale selection falls back", "les-gone", "", "mod-a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TargetModule(tree(), tc.selected, tc.explicit)
			if err != nil {
				t.Fatalf("TargetModule: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestTargetModule_UnknownExplicit(t *testing.T) {
	_, err := TargetModule(tree(), "", "mod-x")
	var ve mutate.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestApply_EmptyTreeBlocksWithoutCalls(t *testing.T) {
	gw := gatewaytest.New(model.Course{ID: "crs-1"}, nil)
	_, err := Apply(context.Background(), gw, Builtin(), "reading", nil, "", "")
	var ve mutate.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected blocking ValidationError, got %v", err)
	}
	if n := len(gw.Calls()); n != 0 {
		t.Fatalf("expected no gateway calls, got %d", n)
	}
}

func TestApply_CreatesInResolvedModule(t *testing.T) {
	gw := gatewaytest.New(model.Course{ID: "crs-1"}, tree())
	res, err := Apply(context.Background(), gw, Builtin(), "reading", tree(), "les-4", "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.ModuleID != "mod-b" || res.LessonID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	created := gw.Modules()[1].Lessons[1]
	if created.ID != res.LessonID || created.ContentType != model.ContentText || created.Position != 1 {
		t.Fatalf("unexpected created lesson %+v", created)
	}
}

func TestApply_UnknownTemplate(t *testing.T) {
	gw := gatewaytest.New(model.Course{ID: "crs-1"}, tree())
	if _, err := Apply(context.Background(), gw, Builtin(), "nope", tree(), "", ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(nil)
	if err != nil || len(got) != len(Builtin()) {
		t.Fatalf("empty config should yield builtins: %v %d", err, len(got))
	}

	got, err = Normalize([]model.LessonTemplate{{ID: " lab ", Title: " Lab ", ContentType: "Assignment"}})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got[0].ID != "lab" || got[0].Name != "Lab" || got[0].ContentType != model.ContentAssignment {
		t.Fatalf("unexpected normalized template %+v", got[0])
	}

	bad := [][]model.LessonTemplate{
		{{ID: "", Title: "x", ContentType: model.ContentText}},
		{{ID: "a", Title: "", ContentType: model.ContentText}},
		{{ID: "a", Title: "x", ContentType: "podcast"}},
		{{ID: "a", Title: "x", ContentType: model.ContentText}, {ID: "a", Title: "y", ContentType: model.ContentText}},
	}
	for i, in := range bad {
		if _, err := Normalize(in); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
