package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iWorld-y/weflow/internal/engine"
	"github.com/iWorld-y/weflow/internal/logger"
)

func init() {
	logger.Silence()
}

type mockRunner struct {
	calls   int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (m *mockRunner) Run(ctx context.Context) (*engine.Report, error) {
	m.calls++
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	return &engine.Report{Selected: m.calls}, m.err
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		entries int
		wantErr bool
	}{
		{name: "daily", spec: "0 8 * * *", entries: 1},
		{name: "descriptor", spec: "@daily", entries: 1},
		{name: "manual only", spec: "", entries: 0},
		{name: "invalid", spec: "every morning", wantErr: true},
		{name: "six fields", spec: "0 0 8 * * *", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), tt.spec, &mockRunner{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if err == nil && len(s.cron.Entries()) != tt.entries {
				t.Errorf("entries = %d, want %d", len(s.cron.Entries()), tt.entries)
			}
		})
	}
}

func TestRunOnce(t *testing.T) {
	runner := &mockRunner{}
	s, err := New(context.Background(), "", runner)
	if err != nil {
		t.Fatal(err)
	}
	if rep, err := s.Last(); rep != nil || err != nil {
		t.Error("Last() should be empty before any run")
	}

	rep, err := s.RunOnce()
	if err != nil || rep.Selected != 1 {
		t.Fatalf("RunOnce() = %+v, %v", rep, err)
	}

	runner.err = errors.New("publish failed")
	s.runScheduled()
	last, lastErr := s.Last()
	if runner.calls != 2 || last.Selected != 2 || lastErr == nil {
		t.Errorf("calls = %d, last = %+v, err = %v", runner.calls, last, lastErr)
	}
}

func TestTriggerIsExclusive(t *testing.T) {
	runner := &mockRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s, err := New(context.Background(), "", runner)
	if err != nil {
		t.Fatal(err)
	}

	if !s.Trigger() {
		t.Fatal("first Trigger() should start a run")
	}
	<-runner.started

	if !s.Running() {
		t.Error("Running() = false during a run")
	}
	if s.Trigger() {
		t.Error("second Trigger() should be rejected while running")
	}
	if _, err := s.RunOnce(); !errors.Is(err, ErrBusy) {
		t.Errorf("RunOnce() error = %v, want ErrBusy", err)
	}

	close(runner.block)
	deadline := time.Now().Add(2 * time.Second)
	for s.Running() {
		if time.Now().After(deadline) {
			t.Fatal("run did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if last, _ := s.Last(); last == nil || last.Selected != 1 {
		t.Errorf("Last() = %+v", last)
	}
}

type panicRunner struct{}

func (panicRunner) Run(ctx context.Context) (*engine.Report, error) { panic("boom") }

func TestRunRecoversPanic(t *testing.T) {
	s, _ := New(context.Background(), "", panicRunner{})
	if _, err := s.RunOnce(); err == nil {
		t.Error("RunOnce() should turn a panic into an error")
	}
	if s.Running() {
		t.Error("lock should be released after a panic")
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(context.Background(), "@yearly", &mockRunner{})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	<-s.Stop().Done()
}

func TestFields(t *testing.T) {
	f := fields([]interface{}{"entry", 1, "now", "x", "dangling"})
	if len(f) != 2 || f["entry"] != 1 || f["now"] != "x" {
		t.Errorf("fields() = %v", f)
	}
}
