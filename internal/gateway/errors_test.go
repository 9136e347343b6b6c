package gateway

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}

	base := fmt.Errorf("lesson les-1: %w", ErrNotFound)
	err := Wrap("saveLesson", base)
	var ne *NetworkError
	if !errors.As(err, &ne) || ne.Op != "saveLesson" {
		t.Fatalf("expected NetworkError, got %T %v", err, err)
	}
	if !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound to survive wrapping")
	}
	if again := Wrap("other", err); again != err {
		t.Fatalf("expected existing NetworkError to pass through")
	}
}
