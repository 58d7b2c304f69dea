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

package pprof

import (
	"context"
	"io"
	"runtime/pprof"
	"time"

	"github.com/livekit/webcam-recorder/pkg/errors"
)

const (
	cpuProfileName = "cpu"
	defaultTimeout = 30 * time.Second
)

// WriteProfile writes the named runtime profile to w. The cpu profile is sampled for
// duration, or 30s when duration is zero.
func WriteProfile(ctx context.Context, w io.Writer, profileName string, duration time.Duration, debug int) error {
	if profileName == cpuProfileName {
		return writeCPUProfile(ctx, w, duration)
	}

	p := pprof.Lookup(profileName)
	if p == nil {
		return errors.ErrProfileNotFound
	}
	return p.WriteTo(w, debug)
}

func writeCPUProfile(ctx context.Context, w io.Writer, duration time.Duration) error {
	if duration == 0 {
		duration = defaultTimeout
	}

	if err := pprof.StartCPUProfile(w); err != nil {
		return err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		pprof.StopCPUProfile()
		return ctx.Err()
	case <-timer.C:
	}

	pprof.StopCPUProfile()
	return nil
}
