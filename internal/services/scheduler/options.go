package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type options struct {
	Logger   *log.Logger
	Cron     *cron.Cron
	Parser   cron.Parser
	Jobs     []*Job
	Location *time.Location
}

// Option applies configuration to the scheduler service.
type Option func(*options)

func defaultOptions() options {
	return options{Logger: log.Default(), Location: time.UTC}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithCronParser allows replacing the cron expression parser.
func WithCronParser(p cron.Parser) Option {
	return func(o *options) {
		o.Parser = p
	}
}

// WithJobs replaces the built-in job definitions.
func WithJobs(jobs []*Job) Option {
	return func(o *options) {
		o.Jobs = jobs
	}
}

// WithLocation sets the scheduler time zone.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.Location = loc
	}
}
