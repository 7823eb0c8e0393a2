package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"auto_tweet_agent/agent"
	"auto_tweet_agent/logging"
)

// Runner is the part of the orchestrator the schedule drives.
type Runner interface {
	PublishFromTopic(ctx context.Context, topic string, trigger agent.Trigger) agent.Outcome
}

// Scheduler publishes on a cron schedule with trigger "cron". Topics, when
// configured, are used in turn; otherwise the generator picks the subject.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	topics  []string
	next    atomic.Uint64
	timeout time.Duration
	logger  logging.Logger
}

// New parses spec (standard 5-field cron or descriptors such as "@every 6h").
// A tick is skipped while the previous scheduled run is still in flight.
func New(spec string, topics []string, runner Runner, timeout time.Duration, logger logging.Logger) (*Scheduler, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, errors.New("schedule is required")
	}
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	cronLogger := cron.PrintfLogger(logger)
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		runner:  runner,
		topics:  topics,
		timeout: timeout,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.WithField("entries", len(s.cron.Entries())).Info("Scheduler started")
	s.cron.Start()
}

// Stop stops scheduling and returns a context that is done once a running tick finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next reports when the next scheduled run fires.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	topic := s.nextTopic()
	out := s.runner.PublishFromTopic(ctx, topic, agent.TriggerCron)
	entry := s.logger.WithFields(logging.Fields{"topic": topic, "run_id": out.RunID})
	if out.OK {
		entry.Info("Scheduled run published")
		return
	}
	entry.WithField("error", out.Error).Warn("Scheduled run failed")
}

func (s *Scheduler) nextTopic() string {
	if len(s.topics) == 0 {
		return ""
	}
	n := s.next.Add(1) - 1
	return s.topics[n%uint64(len(s.topics))]
}
