package publisher

import (
	"context"
	"strings"

	"auto_tweet_agent/failure"
	"auto_tweet_agent/logging"
)

// DryRunPublisher logs what would have been posted. Useful for local runs
// without X credentials.
type DryRunPublisher struct {
	logger logging.Logger
}

func NewDryRun(logger logging.Logger) *DryRunPublisher {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &DryRunPublisher{logger: logger}
}

func (d *DryRunPublisher) Publish(_ context.Context, req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return failure.Operationf("post text is empty")
	}
	d.logger.WithFields(logging.Fields{
		"text":     req.Text,
		"trigger":  req.Metadata[MetaTrigger],
		"metadata": req.Metadata,
	}).Info("[dry-run] tweet not sent")
	return nil
}
