package pipeline

import (
	"context"
	"testing"

	"github.com/ptdat/paperblog/internal/models"
)

type nopRunner struct{}

func (nopRunner) RunCurrentWindow(context.Context, bool) (*models.BlogArtifact, error) {
	return &models.BlogArtifact{}, nil
}

func TestNewScheduler_DefaultSchedule(t *testing.T) {
	s := NewScheduler("", nopRunner{})
	if s.schedule != DefaultSchedule {
		t.Errorf("schedule = %q, want default %q", s.schedule, DefaultSchedule)
	}
}

func TestScheduler_StartAndStop(t *testing.T) {
	s := NewScheduler("0 8 * * 4", nopRunner{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	s.Stop()
}

func TestScheduler_InvalidExpression(t *testing.T) {
	s := NewScheduler("not a cron spec", nopRunner{})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() with invalid expression succeeded, want error")
	}
}
