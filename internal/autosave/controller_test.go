package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestScheduleCoalescesToLatest(t *testing.T) {
	c := New(Options{Debounce: 30 * time.Millisecond})
	defer c.Dispose()

	var mu sync.Mutex
	var ran []string
	save := func(tag string) SaveFunc {
		return func(context.Context) error {
			mu.Lock()
			ran = append(ran, tag)
			mu.Unlock()
			return nil
		}
	}

	c.MarkUnsaved()
	c.Schedule(save("first"))
	c.MarkUnsaved()
	c.Schedule(save("second"))
	if got := c.State().Status; got != StatusUnsaved {
		t.Fatalf("expected unsaved before fire, got %s", got)
	}

	waitFor(t, func() bool { return c.State().Status == StatusSaved })
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 1 || ran[0] != "second" {
		t.Fatalf("expected only the latest save to run, got %v", ran)
	}
	if c.State().LastSavedAt.IsZero() {
		t.Fatalf("expected lastSavedAt to be recorded")
	}
}

func TestFailureMovesToErrorWithoutRetry(t *testing.T) {
	c := New(Options{Debounce: 10 * time.Millisecond})
	defer c.Dispose()

	var calls atomic.Int32
	boom := errors.New("offline")
	c.Schedule(func(context.Context) error {
		calls.Add(1)
		return boom
	})

	waitFor(t, func() bool { return c.State().Status == StatusError })
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls.Load())
	}
	if !errors.Is(c.State().Err, boom) {
		t.Fatalf("expected state error to carry the cause, got %v", c.State().Err)
	}
}

func TestFlushRunsImmediatelyAndCancelsTimer(t *testing.T) {
	c := New(Options{Debounce: time.Hour})
	defer c.Dispose()

	var timerRan atomic.Bool
	c.Schedule(func(context.Context) error {
		timerRan.Store(true)
		return nil
	})

	var flushed bool
	if err := c.Flush(context.Background(), func(context.Context) error {
		flushed = true
		return nil
	}); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !flushed || timerRan.Load() {
		t.Fatalf("expected flush fn only, flushed=%v timerRan=%v", flushed, timerRan.Load())
	}
	if c.Pending() {
		t.Fatalf("expected pending save to be cancelled")
	}
	if c.State().Status != StatusSaved {
		t.Fatalf("expected saved, got %s", c.State().Status)
	}
}

func TestFlushNilRunsPending(t *testing.T) {
	c := New(Options{Debounce: time.Hour})
	defer c.Dispose()

	if err := c.Flush(context.Background(), nil); err != nil {
		t.Fatalf("flush with nothing pending: %v", err)
	}

	var ran bool
	c.Schedule(func(context.Context) error { ran = true; return nil })
	if err := c.Flush(context.Background(), nil); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !ran {
		t.Fatalf("expected pending save to run on flush")
	}
}

func TestFlushReturnsSaveError(t *testing.T) {
	c := New(Options{})
	defer c.Dispose()
	boom := errors.New("500")
	if err := c.Flush(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected flush to surface error, got %v", err)
	}
	if c.State().Status != StatusError {
		t.Fatalf("expected error status, got %s", c.State().Status)
	}
}

func TestDisposeCancelsPendingSave(t *testing.T) {
	c := New(Options{Debounce: 20 * time.Millisecond})

	var ran atomic.Bool
	c.Schedule(func(context.Context) error { ran.Store(true); return nil })
	c.Dispose()
	time.Sleep(60 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("save fired after dispose")
	}

	c.Schedule(func(context.Context) error { ran.Store(true); return nil })
	time.Sleep(60 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("schedule after dispose must be ignored")
	}
	if err := c.Flush(context.Background(), nil); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
}

func TestOnChangeObservesTransitions(t *testing.T) {
	var mu sync.Mutex
	var seen []Status
	c := New(Options{OnChange: func(s State) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	}})
	defer c.Dispose()

	c.MarkUnsaved()
	_ = c.Flush(context.Background(), func(context.Context) error { return nil })

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusUnsaved, StatusSaving, StatusSaved}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}

func TestResetDropsPending(t *testing.T) {
	c := New(Options{Debounce: 20 * time.Millisecond})
	defer c.Dispose()
	var ran atomic.Bool
	c.MarkUnsaved()
	c.Schedule(func(context.Context) error { ran.Store(true); return nil })
	c.Reset()
	time.Sleep(60 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("reset must drop the pending save")
	}
	if c.State().Status != StatusSaved {
		t.Fatalf("expected saved after reset, got %s", c.State().Status)
	}
}

func TestFlushWaitsForSaveInFlight(t *testing.T) {
	c := New(Options{Debounce: 5 * time.Millisecond})
	defer c.Dispose()

	started := make(chan struct{})
	var done atomic.Bool
	c.Schedule(func(context.Context) error {
		close(started)
		time.Sleep(80 * time.Millisecond)
		done.Store(true)
		return nil
	})
	<-started
	if c.Pending() {
		t.Fatalf("a running save is not pending")
	}
	if err := c.Flush(context.Background(), nil); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !done.Load() {
		t.Fatalf("flush returned before the running save finished")
	}
	if c.State().Status != StatusSaved {
		t.Fatalf("expected saved, got %s", c.State().Status)
	}
}
