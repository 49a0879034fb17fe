// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents/types"
	"github.com/h2t/unpack"
	"github.com/pkg/errors"
)

// DetailType is the detail type of all events published by the hook.
const DetailType = "Archive Extraction Result"

// EventPutter publishes events, it is implemented by [*cloudwatchevents.Client].
type EventPutter interface {
	PutEvents(ctx context.Context, params *cloudwatchevents.PutEventsInput, optFns ...func(*cloudwatchevents.Options)) (*cloudwatchevents.PutEventsOutput, error)
}

// NewCloudWatchClient creates a CloudWatch Events client from the default AWS
// configuration chain (environment, shared config, instance role).
func NewCloudWatchClient(ctx context.Context) (*cloudwatchevents.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load aws configuration")
	}
	return cloudwatchevents.NewFromConfig(cfg), nil
}

// CloudWatchOption adjusts the hook created by [NewCloudWatchHook].
type CloudWatchOption func(*cloudWatchHook)

// WithEventBus publishes the events to the named event bus instead of the default one.
func WithEventBus(name string) CloudWatchOption {
	return func(h *cloudWatchHook) {
		h.eventBus = name
	}
}

// WithErrorLogger sets the logger for failed submissions. Failed submissions are
// dropped silently otherwise.
func WithErrorLogger(logger *slog.Logger) CloudWatchOption {
	return func(h *cloudWatchHook) {
		h.logger = logger
	}
}

type cloudWatchHook struct {
	client   EventPutter
	source   string
	eventBus string
	logger   *slog.Logger
}

// NewCloudWatchHook returns a hook that publishes each result as JSON event detail
// with the given source. A failed submission never affects the extraction.
func NewCloudWatchHook(client EventPutter, source string, opts ...CloudWatchOption) unpack.ResultHook {
	h := &cloudWatchHook{client: client, source: source}
	for _, opt := range opts {
		opt(h)
	}
	return h.submit
}

func (h *cloudWatchHook) submit(ctx context.Context, r *unpack.Result) {
	if err := h.put(ctx, r); err != nil && h.logger != nil {
		h.logger.Error("cannot submit extraction result", "error", err)
	}
}

func (h *cloudWatchHook) put(ctx context.Context, r *unpack.Result) error {
	entry := types.PutEventsRequestEntry{
		Detail:     aws.String(r.String()),
		DetailType: aws.String(DetailType),
		Source:     aws.String(h.source),
		Resources:  []string{},
	}
	if len(h.eventBus) > 0 {
		entry.EventBusName = aws.String(h.eventBus)
	}

	out, err := h.client.PutEvents(ctx, &cloudwatchevents.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{entry},
	})
	if err != nil {
		return errors.Wrap(err, "put events")
	}
	for _, e := range out.Entries {
		if e.ErrorCode != nil {
			return errors.Errorf("event rejected (%s): %s", aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage))
		}
	}
	return nil
}
