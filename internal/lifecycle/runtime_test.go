package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func recordingComponent(name string, events *[]string, startErr error) *Func {
	return &Func{
		ComponentName: name,
		OnStart: func(ctx context.Context) error {
			*events = append(*events, "start:"+name)
			return startErr
		},
		OnStop: func(ctx context.Context) error {
			*events = append(*events, "stop:"+name)
			return nil
		},
	}
}

func TestRuntimeStartStopOrder(t *testing.T) {
	t.Parallel()

	events := make([]string, 0, 6)
	runtime := NewRuntime(
		recordingComponent("db", &events, nil),
		recordingComponent("metrics", &events, nil),
		recordingComponent("updates", &events, nil),
	)
	if err := runtime.Start(context.Background()); err != nil {
		t.Fatalf("start runtime: %v", err)
	}
	if err := runtime.Stop(context.Background()); err != nil {
		t.Fatalf("stop runtime: %v", err)
	}

	expected := []string{
		"start:db",
		"start:metrics",
		"start:updates",
		"stop:updates",
		"stop:metrics",
		"stop:db",
	}
	if !reflect.DeepEqual(events, expected) {
		t.Fatalf("unexpected order: got %v want %v", events, expected)
	}
}

func TestRuntimeStartFailureUnwinds(t *testing.T) {
	t.Parallel()

	events := make([]string, 0, 4)
	startErr := errors.New("boom")
	runtime := NewRuntime(
		recordingComponent("db", &events, nil),
		recordingComponent("metrics", &events, startErr),
		recordingComponent("updates", &events, nil),
	)

	err := runtime.Start(context.Background())
	if !errors.Is(err, startErr) {
		t.Fatalf("start err = %v, want %v", err, startErr)
	}

	expected := []string{"start:db", "start:metrics", "stop:db"}
	if !reflect.DeepEqual(events, expected) {
		t.Fatalf("unexpected events: %v", events)
	}
}
