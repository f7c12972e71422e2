package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/campusdesk-io/campusdesk/internal/services/escalation"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// HandlerSweep names the built-in escalation sweep handler.
const HandlerSweep = "escalation-sweep"

// Sweeper runs one escalation sweep over the overdue ticket backlog.
type Sweeper interface {
	RunSweep(ctx context.Context) (escalation.SweepResult, error)
}

// Handler executes a scheduled job.
type Handler func(context.Context, *Job) error

// Service coordinates scheduled job execution.
type Service struct {
	sweeper   Sweeper
	cron      *cron.Cron
	parser    cron.Parser
	handlers  map[string]Handler
	entries   map[string]cron.EntryID
	jobs      map[string]*Job
	mu        sync.RWMutex
	handlerMu sync.RWMutex
	rootCtx   context.Context
	logger    *log.Logger
	startOnce sync.Once
	stopOnce  sync.Once
	location  *time.Location
}

// NewService wires a scheduler around the escalation sweep.
func NewService(sweeper Sweeper, opts ...Option) *Service {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = log.Default()
	}

	location := options.Location
	if location == nil {
		location = time.UTC
	}

	cronEngine := options.Cron
	if cronEngine == nil {
		cronEngine = cron.New(cron.WithLocation(location))
	}
	var zeroParser cron.Parser
	parser := options.Parser
	if parser == zeroParser {
		parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	}

	jobs := make(map[string]*Job)
	for _, job := range options.Jobs {
		if job == nil || job.Slug == "" || job.Schedule == "" {
			continue
		}
		jobs[job.Slug] = job.Clone()
	}

	s := &Service{
		sweeper:  sweeper,
		cron:     cronEngine,
		parser:   parser,
		handlers: make(map[string]Handler),
		entries:  make(map[string]cron.EntryID),
		jobs:     jobs,
		logger:   options.Logger,
		location: location,
	}

	s.registerBuiltinHandlers()
	return s
}

// SweepJob builds the standard escalation sweep job definition.
func SweepJob(schedule string, runOnStartup bool) *Job {
	if schedule == "" {
		schedule = "*/5 * * * *"
	}
	return &Job{
		Slug:           "escalation-sweep",
		Schedule:       schedule,
		Handler:        HandlerSweep,
		RunOnStartup:   runOnStartup,
		TimeoutSeconds: 240,
	}
}

func (s *Service) registerBuiltinHandlers() {
	s.RegisterHandler(HandlerSweep, func(ctx context.Context, job *Job) error {
		if s.sweeper == nil {
			return fmt.Errorf("no sweeper configured")
		}
		result, err := s.sweeper.RunSweep(ctx)
		if errors.Is(err, escalation.ErrSweepAlreadyRunning) {
			s.logger.Printf("scheduler: %s: previous sweep still running, skipping", job.Slug)
			return nil
		}
		if err != nil {
			return err
		}
		s.logger.Printf("scheduler: %s: ack=%d resolution=%d skipped=%d conflicts=%d",
			job.Slug, result.AcknowledgementEscalated, result.ResolutionEscalated, result.Skipped, result.Conflicts)
		return nil
	})
}

// Run starts the scheduler loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.startOnce.Do(func() {
		s.rootCtx = ctx
		s.scheduleAllJobs()
		s.cron.Start()
		s.runStartupJobs()
	})

	<-ctx.Done()
	s.stopCron()
	return nil
}

// runStartupJobs executes all jobs marked with RunOnStartup=true.
func (s *Service) runStartupJobs() {
	s.mu.RLock()
	var startupJobs []string
	for slug, job := range s.jobs {
		if job != nil && job.RunOnStartup {
			startupJobs = append(startupJobs, slug)
		}
	}
	s.mu.RUnlock()

	for _, slug := range startupJobs {
		s.mu.RLock()
		entryID := s.entries[slug]
		s.mu.RUnlock()
		go s.executeJob(slug, entryID)
	}
}

func (s *Service) scheduleAllJobs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for slug, job := range s.jobs {
		if job == nil {
			continue
		}
		if err := s.addJobLocked(job.Clone()); err != nil {
			s.logger.Printf("scheduler: failed to schedule job %s: %v", slug, err)
		}
	}
}

func (s *Service) stopCron() {
	s.stopOnce.Do(func() {
		ctx := s.cron.Stop()
		if ctx == nil {
			return
		}
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			s.logger.Printf("scheduler: timed out waiting for jobs to finish")
		}
	})
}

func (s *Service) addJobLocked(job *Job) error {
	schedule, err := s.parser.Parse(job.Schedule)
	if err != nil {
		return err
	}

	slug := job.Slug
	var entryID cron.EntryID
	entryID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.executeJob(slug, entryID)
	}))

	s.entries[slug] = entryID
	s.jobs[slug] = job
	return nil
}

func (s *Service) executeJob(slug string, entryID cron.EntryID) {
	job := s.jobSnapshot(slug)
	if job == nil {
		return
	}

	handler := s.getHandler(job.Handler)
	if handler == nil {
		start := s.now()
		s.finalizeRun(job, slug, entryID, start, start, statusFailed, fmt.Errorf("handler %s not registered", job.Handler))
		return
	}

	ctx := s.rootCtx
	if ctx == nil {
		ctx = context.Background()
	}

	start := s.now()
	jobCtx := ctx
	var cancel context.CancelFunc
	if job.TimeoutSeconds > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, time.Duration(job.TimeoutSeconds)*time.Second)
	}

	var runErr error
	func() {
		defer func() {
			if cancel != nil {
				cancel()
			}
			if r := recover(); r != nil {
				runErr = fmt.Errorf("panic: %v", r)
			}
		}()
		runErr = handler(jobCtx, job)
	}()

	finish := s.now()
	status := statusSuccess
	if runErr != nil {
		status = statusFailed
	}

	s.finalizeRun(job, slug, entryID, start, finish, status, runErr)
}

func (s *Service) finalizeRun(job *Job, slug string, entryID cron.EntryID, start, finish time.Time, status string, runErr error) {
	duration := finish.Sub(start)
	cloned := job.Clone()
	cloned.LastRunAt = &finish
	cloned.LastDurationMS = duration.Milliseconds()
	cloned.LastStatus = status
	if runErr != nil {
		msg := runErr.Error()
		cloned.ErrorMessage = &msg
		s.logger.Printf("scheduler: job %s failed: %v", slug, runErr)
	} else {
		cloned.ErrorMessage = nil
	}

	if entry := s.cron.Entry(entryID); entry.ID != 0 && !entry.Next.IsZero() {
		next := entry.Next.In(s.location)
		cloned.NextRunAt = &next
	} else {
		cloned.NextRunAt = nil
	}

	s.applyExecutionResult(slug, cloned)
}

func (s *Service) now() time.Time {
	if s.location == nil {
		return time.Now()
	}
	return time.Now().In(s.location)
}

func (s *Service) applyExecutionResult(slug string, job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[slug] = job.Clone()
}

func (s *Service) jobSnapshot(slug string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if job, ok := s.jobs[slug]; ok {
		return job.Clone()
	}
	return nil
}

// Jobs returns a snapshot of every registered job.
func (s *Service) Jobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out
}

func (s *Service) getHandler(name string) Handler {
	if name == "" {
		return nil
	}
	s.handlerMu.RLock()
	defer s.handlerMu.RUnlock()
	return s.handlers[name]
}

// RegisterHandler attaches or replaces a handler for the given name. Passing nil removes the handler.
func (s *Service) RegisterHandler(name string, handler Handler) {
	if name == "" {
		return
	}
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	if handler == nil {
		delete(s.handlers, name)
		return
	}
	s.handlers[name] = handler
}
