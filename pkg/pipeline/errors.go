// Copyright 2024 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"strings"

	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/errors"
	"github.com/livekit/webcam-recorder/pkg/pipeline/builder"
)

type ErrorCategory string

const (
	ErrCategoryDevice      ErrorCategory = "device"
	ErrCategoryNegotiation ErrorCategory = "negotiation"
	ErrCategoryResource    ErrorCategory = "resource"
	ErrCategoryEncoder     ErrorCategory = "encoder"
	ErrCategoryUnknown     ErrorCategory = "unknown"
)

var (
	negotiationKeywords = []string{"not-negotiated", "not negotiated", "caps", "no common format"}
	resourceKeywords    = []string{"could not open file", "no space", "permission denied", "could not write", "resource"}
	deviceKeywords      = []string{"device", "cannot identify", "busy", "v4l2", "avfvideosrc", "ksvideosrc", "mfvideosrc", "camera"}
	encoderKeywords     = []string{"encode", "x264", "h264", "vtenc"}
)

// classifyError checks for negotiation failures first, since any element may report
// them, then the failing element or one of its children, then keywords in the message and debug string.
func classifyError(ev *engine.Event) ErrorCategory {
	var msg string
	if ev.Err != nil {
		msg = ev.Err.Error()
	}
	combined := strings.ToLower(msg + " " + ev.Debug)

	switch {
	case containsAny(combined, negotiationKeywords):
		return ErrCategoryNegotiation
	case strings.HasPrefix(ev.Source, builder.SourceName):
		return ErrCategoryDevice
	case strings.HasPrefix(ev.Source, builder.RecordSinkName):
		return ErrCategoryResource
	case strings.HasPrefix(ev.Source, builder.RecordEncoderName):
		return ErrCategoryEncoder
	case containsAny(combined, resourceKeywords):
		return ErrCategoryResource
	case containsAny(combined, deviceKeywords):
		return ErrCategoryDevice
	case containsAny(combined, encoderKeywords):
		return ErrCategoryEncoder
	default:
		return ErrCategoryUnknown
	}
}

func newRuntimeError(ev *engine.Event) *errors.RuntimeError {
	err := ev.Err
	if err == nil {
		err = errors.New("unknown engine error")
	}
	return &errors.RuntimeError{
		Category: string(classifyError(ev)),
		Source:   ev.Source,
		Err:      errors.ErrGstPipelineError(err),
		Debug:    ev.Debug,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
