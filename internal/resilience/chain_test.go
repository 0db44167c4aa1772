package resilience

import (
	"context"
	"errors"
	"testing"
)

func tracer(log *[]string, name string) Middleware {
	return func(next Operation) Operation {
		return func(ctx context.Context) error {
			*log = append(*log, name+":before")
			err := next(ctx)
			*log = append(*log, name+":after")
			return err
		}
	}
}

func TestChain_Order(t *testing.T) {
	var log []string

	op := Chain(func(ctx context.Context) error {
		log = append(log, "op")
		return nil
	}, tracer(&log, "outer"), tracer(&log, "inner"))

	if err := op(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer:before", "inner:before", "op", "inner:after", "outer:after"}
	if len(log) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("event %d: expected %q, got %q", i, want[i], log[i])
		}
	}
}

func TestChain_NoMiddleware(t *testing.T) {
	testErr := errors.New("boom")
	op := Chain(func(ctx context.Context) error { return testErr })

	if err := op(context.Background()); !errors.Is(err, testErr) {
		t.Errorf("expected operation error, got %v", err)
	}
}

func TestChain_ErrorPropagates(t *testing.T) {
	var log []string
	testErr := errors.New("boom")

	op := Chain(func(ctx context.Context) error {
		return testErr
	}, tracer(&log, "outer"))

	if err := op(context.Background()); !errors.Is(err, testErr) {
		t.Errorf("expected operation error, got %v", err)
	}
	if len(log) != 2 {
		t.Errorf("middleware should run around the failing operation, got %v", log)
	}
}
