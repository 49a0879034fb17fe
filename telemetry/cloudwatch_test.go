// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents/types"
	"github.com/h2t/unpack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePutter records the submitted events
type fakePutter struct {
	inputs []*cloudwatchevents.PutEventsInput
	out    *cloudwatchevents.PutEventsOutput
	err    error
}

func (f *fakePutter) PutEvents(ctx context.Context, params *cloudwatchevents.PutEventsInput, optFns ...func(*cloudwatchevents.Options)) (*cloudwatchevents.PutEventsOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return &cloudwatchevents.PutEventsOutput{}, nil
}

func TestCloudWatchHook(t *testing.T) {
	fp := &fakePutter{}
	hook := NewCloudWatchHook(fp, "test.unpack", WithEventBus("extractions"))

	hook(context.Background(), &unpack.Result{ExtractedType: "zip", ExtractedFiles: 3, Destination: "out"})

	require.Len(t, fp.inputs, 1)
	require.Len(t, fp.inputs[0].Entries, 1)
	entry := fp.inputs[0].Entries[0]
	assert.Equal(t, "test.unpack", aws.ToString(entry.Source))
	assert.Equal(t, DetailType, aws.ToString(entry.DetailType))
	assert.Equal(t, "extractions", aws.ToString(entry.EventBusName))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "zip", detail["extracted_type"])
	assert.Equal(t, float64(3), detail["extracted_files"])
}

func TestCloudWatchHookErrors(t *testing.T) {
	cases := []struct {
		name   string
		putter *fakePutter
	}{
		{
			name:   "client error",
			putter: &fakePutter{err: fmt.Errorf("connection refused")},
		},
		{
			name: "rejected entry",
			putter: &fakePutter{out: &cloudwatchevents.PutEventsOutput{
				Entries: []types.PutEventsResultEntry{{ErrorCode: aws.String("Throttled"), ErrorMessage: aws.String("slow down")}},
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			hook := NewCloudWatchHook(tc.putter, "test.unpack", WithErrorLogger(logger))

			hook(context.Background(), &unpack.Result{ExtractedType: "tar"})

			assert.Len(t, tc.putter.inputs, 1)
			assert.Contains(t, buf.String(), "cannot submit extraction result")
		})
	}
}

func TestNoopHook(t *testing.T) {
	NoopHook(context.Background(), &unpack.Result{})
}
