// Package agent runs the generate → publish → record pipeline.
//
// Every publish path ends in exactly one Outcome and, for failures and
// successes alike, one status write. Preview never touches the status.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"auto_tweet_agent/failure"
	"auto_tweet_agent/generator"
	"auto_tweet_agent/logging"
	"auto_tweet_agent/publisher"
	"auto_tweet_agent/status"
)

const statusWriteTimeout = 5 * time.Second

// Generator produces a draft from an optional topic.
type Generator interface {
	Generate(ctx context.Context, topic string) (generator.Draft, error)
}

// Publisher delivers text to the posting surface.
type Publisher interface {
	Publish(ctx context.Context, req publisher.Request) error
}

// Outcome is the uniform result of a publish run. Delivered is set when the
// post went out even though the run failed afterwards; callers must not retry it.
type Outcome struct {
	OK        bool         `json:"ok"`
	Error     string       `json:"error,omitempty"`
	Delivered bool         `json:"delivered,omitempty"`
	Kind      failure.Kind `json:"-"`
	RunID     string       `json:"-"`
}

// ManualRequest is an operator-initiated publish: explicit text, or a topic
// (possibly empty) to generate from when Tweet is empty.
type ManualRequest struct {
	Tweet    string
	Metadata map[string]any
	Topic    string
}

// Options tune an Orchestrator. Zero values mean no per-stage timeout.
type Options struct {
	GenerateTimeout time.Duration
	PublishTimeout  time.Duration
	Metrics         *Metrics
	Now             func() time.Time
}

type Orchestrator struct {
	gen     Generator
	pub     Publisher
	store   status.Store
	logger  logging.Logger
	opts    Options
	metrics *Metrics
	now     func() time.Time
}

func New(gen Generator, pub Publisher, store status.Store, logger logging.Logger, opts Options) (*Orchestrator, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	if store == nil {
		return nil, errors.New("status store is required")
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		gen:     gen,
		pub:     pub,
		store:   store,
		logger:  logger,
		opts:    opts,
		metrics: opts.Metrics,
		now:     now,
	}, nil
}

type run struct {
	id      string
	trigger Trigger
	log     logging.Entry
}

// Preview generates a draft and returns it unmodified. Failures are returned
// as generation failures and are not recorded in the status.
func (o *Orchestrator) Preview(ctx context.Context, topic string) (generator.Draft, error) {
	draft, err := o.generate(ctx, topic)
	if err != nil {
		o.logger.WithError(err).WithField("topic", topic).Warn("Preview generation failed")
		return generator.Draft{}, err
	}
	return draft, nil
}

// PublishFromTopic generates a draft, stamps it with trigger and publishes it.
func (o *Orchestrator) PublishFromTopic(ctx context.Context, topic string, trigger Trigger) Outcome {
	r := o.begin(trigger.orDefault())
	r.log.WithField("topic", topic).Debug("generating")

	draft, err := o.generate(ctx, topic)
	if err != nil {
		return o.fail(ctx, r, err)
	}

	metadata := cloneMetadata(draft.Metadata)
	metadata[publisher.MetaTrigger] = string(r.trigger)
	return o.publish(ctx, r, publisher.Request{Text: draft.Tweet, Metadata: metadata})
}

// PublishExplicit publishes caller-supplied text without generating. A trigger
// already present in metadata is passed to the publisher as is; otherwise it
// defaults to manual. The run itself is recorded as cron or manual only.
func (o *Orchestrator) PublishExplicit(ctx context.Context, text string, metadata map[string]any) Outcome {
	meta := cloneMetadata(metadata)
	if v, ok := meta[publisher.MetaTrigger]; !ok || v == nil {
		meta[publisher.MetaTrigger] = string(TriggerManual)
	}
	r := o.begin(triggerOf(meta[publisher.MetaTrigger]))
	return o.publish(ctx, r, publisher.Request{Text: text, Metadata: meta})
}

// Publish handles an operator request: explicit text when present, otherwise
// a freshly generated draft for req.Topic.
func (o *Orchestrator) Publish(ctx context.Context, req ManualRequest) Outcome {
	if req.Tweet != "" {
		return o.PublishExplicit(ctx, req.Tweet, req.Metadata)
	}
	return o.PublishFromTopic(ctx, req.Topic, TriggerManual)
}

// Status returns the last recorded outcome.
func (o *Orchestrator) Status(ctx context.Context) status.Record {
	return o.store.Read(ctx)
}

func (o *Orchestrator) begin(trigger Trigger) run {
	id := uuid.NewString()
	return run{
		id:      id,
		trigger: trigger,
		log:     o.logger.WithFields(logging.Fields{"run_id": id, "trigger": string(trigger)}),
	}
}

func (o *Orchestrator) generate(ctx context.Context, topic string) (generator.Draft, error) {
	genCtx, cancel := withTimeout(ctx, o.opts.GenerateTimeout)
	defer cancel()

	start := time.Now()
	draft, err := o.gen.Generate(genCtx, topic)
	o.metrics.observeStage(stageGenerate, time.Since(start))
	if err != nil {
		if !failure.Is(err, failure.KindGeneration) {
			err = failure.Generation(err)
		}
		return generator.Draft{}, err
	}
	if strings.TrimSpace(draft.Tweet) == "" {
		return generator.Draft{}, failure.Generationf("generator returned an empty draft")
	}
	return draft, nil
}

func (o *Orchestrator) publish(ctx context.Context, r run, req publisher.Request) Outcome {
	r.log.Debug("publishing")

	pubCtx, cancel := withTimeout(ctx, o.opts.PublishTimeout)
	defer cancel()

	start := time.Now()
	err := o.pub.Publish(pubCtx, req)
	o.metrics.observeStage(stagePublish, time.Since(start))
	if err != nil {
		return o.fail(ctx, r, err)
	}

	ranAt := o.now().UTC()
	rec := status.Record{OK: true, LastRun: &ranAt, Trigger: string(r.trigger), RunID: r.id}
	if werr := o.writeStatus(ctx, rec); werr != nil {
		r.log.WithError(werr).Error("Published but failed to record status")
		o.metrics.recordRun(r.trigger, outcomeFailed, failure.KindOperation)
		return Outcome{
			OK:        false,
			Error:     fmt.Sprintf("published but status write failed: %v; the post was delivered, do not retry", werr),
			Delivered: true,
			Kind:      failure.KindOperation,
			RunID:     r.id,
		}
	}

	r.log.Info("published")
	o.metrics.recordRun(r.trigger, outcomePublished, "")
	return Outcome{OK: true, RunID: r.id}
}

// fail records err as the current status and turns it into an Outcome.
func (o *Orchestrator) fail(ctx context.Context, r run, err error) Outcome {
	kind := failure.KindOf(err)
	msg := failure.Message(err)
	out := Outcome{OK: false, Error: msg, Kind: kind, RunID: r.id}

	entry := r.log.WithFields(logging.Fields{"error_kind": string(kind), "error": msg})
	if kind == failure.KindConfiguration {
		entry.Error("failed: publisher is misconfigured")
	} else {
		entry.Warn("failed")
	}

	rec := status.Record{OK: false, LastError: msg, ErrorKind: string(kind), Trigger: string(r.trigger), RunID: r.id}
	if werr := o.writeStatus(ctx, rec); werr != nil {
		r.log.WithError(werr).Error("Failed to record status")
		out.Error = fmt.Sprintf("%s (status write failed: %v)", msg, werr)
	}
	o.metrics.recordRun(r.trigger, outcomeFailed, kind)
	return out
}

// writeStatus ignores caller cancellation: a timed-out request still leaves a record.
func (o *Orchestrator) writeStatus(ctx context.Context, rec status.Record) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	return o.store.Write(wctx, rec)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
