package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/thejonthinator/frysen/internal/updates"
	"github.com/thejonthinator/frysen/pkg/logger"
)

type fakeUpdateChecker struct {
	result updates.Result
	err    error
	calls  int
}

func (f *fakeUpdateChecker) CheckForUpdates(context.Context) (updates.Result, error) {
	f.calls++
	return f.result, f.err
}

func TestNewUpdateCheckJobValidatesParams(t *testing.T) {
	if _, err := NewUpdateCheckJob(UpdateCheckJobParams{Checker: &fakeUpdateChecker{}}); err == nil {
		t.Fatalf("expected logger error")
	}
	if _, err := NewUpdateCheckJob(UpdateCheckJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatalf("expected checker error")
	}
}

func TestUpdateCheckJobRun(t *testing.T) {
	checker := &fakeUpdateChecker{result: updates.Result{
		Status: updates.StatusUpdateAvailable,
		Update: &updates.Release{Version: "1.1.0"},
	}}
	job, err := NewUpdateCheckJob(UpdateCheckJobParams{Logger: logger.Nop(), Checker: checker})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != UpdateCheckJobName {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if checker.calls != 1 {
		t.Fatalf("expected one check, got %d", checker.calls)
	}

	checker.err = errors.New("offline")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error to propagate")
	}
}
