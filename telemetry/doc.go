// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package telemetry submits the [unpack.Result] of an extraction to a telemetry
// service.
//
// [NewCloudWatchHook] returns a [unpack.ResultHook] that publishes every result as
// an Amazon CloudWatch event. [NoopHook] drops the result.
package telemetry
