package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryPreservesOrder(t *testing.T) {
	syncJob := &stubJob{name: "feed-sync"}
	cleanup := &stubJob{name: "placeholder-cleanup"}
	registry := NewRegistry(syncJob)
	registry.Register(cleanup)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name() != "feed-sync" || jobs[1].Name() != "placeholder-cleanup" {
		t.Fatalf("jobs returned out of registration order: %q, %q", jobs[0].Name(), jobs[1].Name())
	}
}

func TestRegistryJobsIsACopy(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "feed-sync"})

	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal job slice leaked to caller")
	}
}
