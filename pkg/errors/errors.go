// Copyright 2023 LiveKit, Inc.
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

package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/livekit/psrpc"
)

var (
	ErrNoDestination   = errors.New("missing destination path")
	ErrStartTimeout    = errors.New("timed out waiting for capture to start")
	ErrSessionEnded    = errors.New("session ended before capture started")
	ErrEOSTimeout      = errors.New("timed out waiting for end of stream")
	ErrEOSRefused      = errors.New("end of stream not accepted")
	ErrNotAMuxer       = errors.New("element is not a muxer")
	ErrProfileNotFound = errors.New("profile not found")
)

func New(err string) error {
	return errors.New(err)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func ErrCouldNotParseConfig(err error) error {
	return fmt.Errorf("could not parse config: %v", err)
}

func ErrInvalidInput(field string) error {
	return fmt.Errorf("request has missing or invalid field: %s", field)
}

func ErrInvalidDestination(path string, err error) error {
	return fmt.Errorf("invalid destination %s: %w", path, err)
}

func ErrGstPipelineError(err error) error {
	return fmt.Errorf("pipeline error: %w", err)
}

func ErrElementCreateFailed(factory string, err error) error {
	return fmt.Errorf("failed to create %s: %w", factory, err)
}

func ErrPropertySetFailed(element, property string, err error) error {
	return fmt.Errorf("failed to set %s on %s: %w", property, element, err)
}

func ErrPadLinkFailed(src, sink, status string) error {
	return fmt.Errorf("failed to link %s to %s: %s", src, sink, status)
}

func ErrUnreachableNode(name string) error {
	return fmt.Errorf("%s is not reachable from the source", name)
}

func ErrActivationFailed(err error) error {
	return fmt.Errorf("failed to activate pipeline: %w", err)
}

func ErrUploadFailed(location string, err error) error {
	return fmt.Errorf("%s upload failed: %w", location, err)
}

type Phase string

const (
	PhaseConstruction Phase = "construction"
	PhaseActivation   Phase = "activation"
)

// StartupError is returned by Start when a session never reached the playing state.
type StartupError struct {
	Phase Phase
	Err   error
}

func NewStartupError(phase Phase, err error) *StartupError {
	return &StartupError{Phase: phase, Err: err}
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("capture %s failed: %v", e.Phase, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

func (e *StartupError) Code() psrpc.ErrorCode {
	switch {
	case errors.Is(e.Err, ErrStartTimeout), errors.Is(e.Err, context.DeadlineExceeded):
		return psrpc.DeadlineExceeded
	case errors.Is(e.Err, context.Canceled):
		return psrpc.Canceled
	case e.Phase == PhaseConstruction:
		return psrpc.InvalidArgument
	default:
		return psrpc.Unavailable
	}
}

// RuntimeError is a fatal engine error reported after the graph was built.
type RuntimeError struct {
	Category string
	Source   string
	Err      error
	Debug    string
}

func (e *RuntimeError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s error from %s: %v", e.Category, e.Source, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Category, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

type ErrArray struct {
	errs []error
}

func (e *ErrArray) AppendErr(err error) {
	e.errs = append(e.errs, err)
}

func (e *ErrArray) Check(err error) {
	if err != nil {
		e.errs = append(e.errs, err)
	}
}

func (e *ErrArray) Len() int {
	return len(e.errs)
}

func (e *ErrArray) ToError() psrpc.Error {
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return psrpc.NewError(codeOf(e.errs[0]), e.errs[0])
	}

	code := psrpc.Unknown
	msg := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		if code == psrpc.Unknown {
			code = codeOf(err)
		}
		msg = append(msg, err.Error())
	}
	return psrpc.NewErrorf(code, "%s", strings.Join(msg, "\n"))
}

func codeOf(err error) psrpc.ErrorCode {
	var pErr psrpc.Error
	if errors.As(err, &pErr) {
		return pErr.Code()
	}
	var sErr *StartupError
	if errors.As(err, &sErr) {
		return sErr.Code()
	}
	return psrpc.Unknown
}
