package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
	"github.com/simik394/osobni-wf-sub002/internal/store/storetest"
)

func TestAddJobThenClaim(t *testing.T) {
	ctx := context.Background()
	l := New(storetest.New())

	job, err := l.AddJob(ctx, "research.query", json.RawMessage(`{"query":"q"}`), nil)
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if len(job.ID) != 8 {
		t.Fatalf("expected 8-character id, got %q", job.ID)
	}
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}

	claimed, err := l.NextQueuedJob(ctx)
	if err != nil {
		t.Fatalf("NextQueuedJob failed: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("expected to claim %s, got %+v", job.ID, claimed)
	}
	if claimed.Status != domain.JobStatusRunning || claimed.StartedAt == nil {
		t.Fatalf("claim did not transition to running: %+v", claimed)
	}

	again, err := l.NextQueuedJob(ctx)
	if err != nil {
		t.Fatalf("NextQueuedJob failed: %v", err)
	}
	if again != nil {
		t.Fatalf("claimed job returned twice: %+v", again)
	}
}

func TestRunningJobNotReturnedAgain(t *testing.T) {
	ctx := context.Background()
	l := New(storetest.New())

	job, err := l.AddJob(ctx, "research.query", nil, nil)
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := l.UpdateJobStatus(ctx, job.ID, domain.JobStatusRunning, JobUpdate{}); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}

	claimed, err := l.NextQueuedJob(ctx)
	if err != nil {
		t.Fatalf("NextQueuedJob failed: %v", err)
	}
	if claimed != nil {
		t.Fatalf("running job must not be claimable: %+v", claimed)
	}
}

func TestTransitionValidation(t *testing.T) {
	ctx := context.Background()
	l := New(storetest.New())

	job, _ := l.AddJob(ctx, "export.document", nil, nil)

	// Skipping running is rejected.
	err := l.UpdateJobStatus(ctx, job.ID, domain.JobStatusCompleted, JobUpdate{})
	if err == nil || !strings.Contains(err.Error(), "cannot transition") {
		t.Fatalf("expected transition error, got %v", err)
	}

	if err := l.UpdateJobStatus(ctx, job.ID, domain.JobStatusRunning, JobUpdate{}); err != nil {
		t.Fatalf("queued→running failed: %v", err)
	}
	// Self-transition is rejected.
	if err := l.UpdateJobStatus(ctx, job.ID, domain.JobStatusRunning, JobUpdate{}); err == nil {
		t.Fatal("expected self-transition to be rejected")
	}

	result := json.RawMessage(`{"documentId":"K7D-01"}`)
	if err := l.UpdateJobStatus(ctx, job.ID, domain.JobStatusCompleted, JobUpdate{Result: result}); err != nil {
		t.Fatalf("running→completed failed: %v", err)
	}

	got, err := l.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != domain.JobStatusCompleted || got.CompletedAt == nil {
		t.Fatalf("terminal job missing stamps: %+v", got)
	}
	if string(got.Result) != string(result) {
		t.Fatalf("result not merged: %s", got.Result)
	}

	// Terminal jobs are immutable.
	if err := l.UpdateJobStatus(ctx, job.ID, domain.JobStatusFailed, JobUpdate{Error: "late"}); err == nil {
		t.Fatal("expected transition out of completed to be rejected")
	}
}

func TestUpdateUnknownJob(t *testing.T) {
	l := New(storetest.New())
	err := l.UpdateJobStatus(context.Background(), "missing1", domain.JobStatusRunning, JobUpdate{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestListJobsFilter(t *testing.T) {
	ctx := context.Background()
	l := New(storetest.New())

	a, _ := l.AddJob(ctx, "research.query", nil, nil)
	l.AddJob(ctx, "export.document", nil, nil)
	l.UpdateJobStatus(ctx, a.ID, domain.JobStatusRunning, JobUpdate{})

	queued, err := l.ListJobs(ctx, domain.JobStatusQueued, "", 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(queued) != 1 || queued[0].Type != "export.document" {
		t.Fatalf("unexpected queued jobs: %+v", queued)
	}

	all, err := l.ListJobs(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
}
