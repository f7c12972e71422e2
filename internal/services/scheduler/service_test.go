package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/campusdesk-io/campusdesk/internal/services/escalation"
)

type stubSweeper struct {
	result escalation.SweepResult
	err    error
	calls  int
}

func (s *stubSweeper) RunSweep(ctx context.Context) (escalation.SweepResult, error) {
	s.calls++
	return s.result, s.err
}

func TestSweepJobDefaults(t *testing.T) {
	job := SweepJob("", true)
	if job.Schedule != "*/5 * * * *" {
		t.Fatalf("default schedule = %q", job.Schedule)
	}
	if !job.RunOnStartup || job.Slug != "escalation-sweep" || job.Handler != HandlerSweep {
		t.Fatalf("unexpected job: %+v", job)
	}

	custom := SweepJob("0 * * * *", false)
	if custom.Schedule != "0 * * * *" || custom.RunOnStartup {
		t.Fatalf("unexpected job: %+v", custom)
	}
}

func TestBuiltinSweepHandlerInvokesSweeper(t *testing.T) {
	sweeper := &stubSweeper{result: escalation.SweepResult{ResolutionEscalated: 2}}
	svc := NewService(sweeper)

	handler := svc.getHandler(HandlerSweep)
	if handler == nil {
		t.Fatal("built-in sweep handler not registered")
	}

	if err := handler(context.Background(), SweepJob("", false)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("sweeper calls = %d", sweeper.calls)
	}
}

func TestBuiltinSweepHandlerSwallowsAlreadyRunning(t *testing.T) {
	sweeper := &stubSweeper{err: escalation.ErrSweepAlreadyRunning}
	svc := NewService(sweeper)

	if err := svc.getHandler(HandlerSweep)(context.Background(), SweepJob("", false)); err != nil {
		t.Fatalf("overlapping sweep should not fail the job: %v", err)
	}
}

func TestBuiltinSweepHandlerPropagatesFailures(t *testing.T) {
	sentinel := errors.New("db down")
	sweeper := &stubSweeper{err: sentinel}
	svc := NewService(sweeper)

	err := svc.getHandler(HandlerSweep)(context.Background(), SweepJob("", false))
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sweep error, got %v", err)
	}
}

func TestExecuteJobRecordsRunStatus(t *testing.T) {
	sweeper := &stubSweeper{}
	svc := NewService(sweeper, WithJobs([]*Job{SweepJob("", false)}))

	svc.executeJob("escalation-sweep", 0)

	job := svc.jobSnapshot("escalation-sweep")
	if job.LastStatus != statusSuccess {
		t.Fatalf("status = %q, want success", job.LastStatus)
	}
	if job.LastRunAt == nil {
		t.Fatal("LastRunAt not recorded")
	}
}

func TestExecuteJobRecoversFromPanic(t *testing.T) {
	svc := NewService(nil, WithJobs([]*Job{
		{Slug: "boom", Schedule: "* * * * *", Handler: "boom"},
	}))
	svc.RegisterHandler("boom", func(ctx context.Context, job *Job) error {
		panic("kaboom")
	})

	svc.executeJob("boom", 0)

	job := svc.jobSnapshot("boom")
	if job.LastStatus != statusFailed {
		t.Fatalf("status = %q, want failed", job.LastStatus)
	}
	if job.ErrorMessage == nil {
		t.Fatal("panic message not recorded")
	}
}

func TestExecuteJobMissingHandlerFails(t *testing.T) {
	svc := NewService(nil, WithJobs([]*Job{
		{Slug: "ghost", Schedule: "* * * * *", Handler: "not-registered"},
	}))

	svc.executeJob("ghost", 0)

	job := svc.jobSnapshot("ghost")
	if job.LastStatus != statusFailed || job.ErrorMessage == nil {
		t.Fatalf("unexpected job state: %+v", job)
	}
}

func TestJobSnapshotDoesNotAliasState(t *testing.T) {
	svc := NewService(nil, WithJobs([]*Job{SweepJob("", false)}))

	snap := svc.jobSnapshot("escalation-sweep")
	snap.Schedule = "mutated"

	if svc.jobSnapshot("escalation-sweep").Schedule == "mutated" {
		t.Fatal("snapshot mutation leaked into scheduler state")
	}
}
