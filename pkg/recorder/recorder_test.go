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

package recorder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livekit/psrpc"
	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/engine"
	"github.com/livekit/webcam-recorder/pkg/engine/enginetest"
	"github.com/livekit/webcam-recorder/pkg/errors"
	"github.com/livekit/webcam-recorder/pkg/pipeline/builder"
	"github.com/livekit/webcam-recorder/pkg/types"
)

const testTimeout = 5 * time.Second

func newTestRecorder(e *enginetest.Engine, mutate func(*config.RecorderConfig)) *Recorder {
	conf := config.DefaultRecorderConfig()
	conf.Elements.Encoder = config.ElementX264Enc
	conf.PollInterval = 10 * time.Millisecond
	conf.StartTimeout = 2 * time.Second
	conf.EOSTimeout = time.Second
	if mutate != nil {
		mutate(conf)
	}
	return New(conf, e, nil)
}

func testParams() *config.CaptureParams {
	return &config.CaptureParams{
		Width:       1280,
		Height:      720,
		Framerate:   config.Fraction{Num: 30, Den: 1},
		PixelFormat: "NV12",
	}
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()

	select {
	case <-h.Done():
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for session to end")
	}
}

func requireStartupError(t *testing.T, err error, phase errors.Phase) *errors.StartupError {
	t.Helper()

	var startupErr *errors.StartupError
	require.True(t, errors.As(err, &startupErr), "unexpected error: %v", err)
	require.Equal(t, phase, startupErr.Phase)
	return startupErr
}

func TestStartStop(t *testing.T) {
	e := enginetest.New()
	r := newTestRecorder(e, nil)
	destination := filepath.Join(t.TempDir(), "test23.mkv")

	h, err := r.Start(context.Background(), testParams(), destination)
	require.NoError(t, err)
	require.True(t, h.IsRunning())
	require.NotEmpty(t, h.SessionID())

	i := h.Info()
	require.Equal(t, types.SessionStatusActive, i.Status)
	require.Equal(t, destination, i.Destination)
	require.Equal(t, int32(1280), i.Params.Width)

	// the file exists while running
	_, err = os.Stat(destination)
	require.NoError(t, err)

	g := e.LastGraph()
	require.Equal(t, engine.StatePlaying, g.CurrentState())
	require.Equal(t, "matroskamux", g.Element(builder.RecordMuxerName).Factory())

	Stop(h)
	i, err = h.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.SessionStatusComplete, i.Status)
	require.False(t, h.IsRunning())

	require.Equal(t, engine.StateNull, g.CurrentState())
	require.Equal(t, 1, g.NullCount())
	require.Equal(t, 1, g.EOSCount())
	require.Equal(t, 1, e.InitCount())
}

func TestStartCopiesParams(t *testing.T) {
	e := enginetest.New()
	r := newTestRecorder(e, nil)
	params := testParams()

	h, err := r.Start(context.Background(), params, filepath.Join(t.TempDir(), "out.mp4"))
	require.NoError(t, err)
	defer waitDone(t, h)
	defer h.Stop()

	params.Width = 640
	require.Equal(t, int32(1280), h.Info().Params.Width)
	require.Equal(t, "mp4mux", e.LastGraph().Element(builder.RecordMuxerName).Factory())
}

func TestStartInvalidDestination(t *testing.T) {
	e := enginetest.New()
	r := newTestRecorder(e, nil)
	destination := filepath.Join(t.TempDir(), "missing", "out.mkv")

	h, err := r.Start(context.Background(), testParams(), destination)
	require.Nil(t, h)
	startupErr := requireStartupError(t, err, errors.PhaseConstruction)
	require.Equal(t, psrpc.InvalidArgument, startupErr.Code())

	// nothing was spawned or created
	require.Equal(t, 0, e.InitCount())
	require.Empty(t, e.Graphs())
	_, err = os.Stat(destination)
	require.True(t, os.IsNotExist(err))
}

func TestStartInvalidParams(t *testing.T) {
	for name, params := range map[string]*config.CaptureParams{
		"nil":         nil,
		"width":       {Width: 0, Height: 720, Framerate: config.Fraction{Num: 30, Den: 1}},
		"height":      {Width: 1280, Height: -1, Framerate: config.Fraction{Num: 30, Den: 1}},
		"numerator":   {Width: 1280, Height: 720, Framerate: config.Fraction{Num: 0, Den: 1}},
		"denominator": {Width: 1280, Height: 720, Framerate: config.Fraction{Num: 30, Den: 0}},
	} {
		t.Run(name, func(t *testing.T) {
			e := enginetest.New()
			r := newTestRecorder(e, nil)

			h, err := r.Start(context.Background(), params, filepath.Join(t.TempDir(), "out.mkv"))
			require.Nil(t, h)
			requireStartupError(t, err, errors.PhaseConstruction)
			require.Empty(t, e.Graphs())
		})
	}
}

func TestStartConstructionFailure(t *testing.T) {
	e := enginetest.New()
	e.FailFactories[config.ElementX264Enc] = errors.New("no such element factory")
	r := newTestRecorder(e, nil)
	destination := filepath.Join(t.TempDir(), "out.mkv")

	h, err := r.Start(context.Background(), testParams(), destination)
	require.Nil(t, h)
	startupErr := requireStartupError(t, err, errors.PhaseConstruction)
	require.Contains(t, startupErr.Error(), config.ElementX264Enc)

	_, err = os.Stat(destination)
	require.True(t, os.IsNotExist(err))
}

func TestStartActivationFailure(t *testing.T) {
	e := enginetest.New()
	e.ActivationErr = errors.New("device not found")
	r := newTestRecorder(e, nil)

	h, err := r.Start(context.Background(), testParams(), filepath.Join(t.TempDir(), "out.mkv"))
	require.Nil(t, h)
	startupErr := requireStartupError(t, err, errors.PhaseActivation)
	require.Equal(t, psrpc.Unavailable, startupErr.Code())
	require.Equal(t, 1, e.LastGraph().NullCount())
}

func TestStartReadOnlyDestination(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() {
		_ = os.Chmod(dir, 0700)
	})
	destination := filepath.Join(dir, "out.mkv")

	e := enginetest.New()
	r := newTestRecorder(e, nil)

	h, err := r.Start(context.Background(), testParams(), destination)
	require.Nil(t, h)
	requireStartupError(t, err, errors.PhaseActivation)

	// the graph was built, then released when the file sink failed to open
	g := e.LastGraph()
	require.NotNil(t, g)
	require.Equal(t, 1, g.NullCount())
	require.Equal(t, engine.StateNull, g.CurrentState())
	require.Equal(t, 0, g.EOSCount())

	_, err = os.Stat(destination)
	require.True(t, os.IsNotExist(err))
}

func TestStartTimeout(t *testing.T) {
	e := enginetest.New()
	e.SkipPlaying = true
	r := newTestRecorder(e, func(conf *config.RecorderConfig) {
		conf.StartTimeout = 100 * time.Millisecond
	})

	start := time.Now()
	h, err := r.Start(context.Background(), testParams(), filepath.Join(t.TempDir(), "out.mkv"))
	require.Nil(t, h)
	require.Less(t, time.Since(start), testTimeout)

	startupErr := requireStartupError(t, err, errors.PhaseActivation)
	require.True(t, errors.Is(err, errors.ErrStartTimeout))
	require.Equal(t, psrpc.DeadlineExceeded, startupErr.Code())

	// the worker released the graph before Start returned
	g := e.LastGraph()
	require.Equal(t, 1, g.NullCount())
	require.Equal(t, 0, g.EOSCount())
}

func TestStartContextCanceled(t *testing.T) {
	e := enginetest.New()
	e.SkipPlaying = true
	r := newTestRecorder(e, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	h, err := r.Start(ctx, testParams(), filepath.Join(t.TempDir(), "out.mkv"))
	require.Nil(t, h)
	startupErr := requireStartupError(t, err, errors.PhaseActivation)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, psrpc.Canceled, startupErr.Code())
	require.Equal(t, 1, e.LastGraph().NullCount())
}

func TestStopIdempotent(t *testing.T) {
	e := enginetest.New()
	r := newTestRecorder(e, nil)

	h, err := r.Start(context.Background(), testParams(), filepath.Join(t.TempDir(), "out.mkv"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Stop()
		}()
	}
	wg.Wait()
	waitDone(t, h)

	// stale handle
	h.Stop()
	Stop(h)
	require.False(t, h.IsRunning())

	g := e.LastGraph()
	require.Equal(t, 1, g.EOSCount())
	require.Equal(t, 1, g.NullCount())
}

func TestStopNilHandle(t *testing.T) {
	require.NotPanics(t, func() {
		Stop(nil)

		var h *Handle
		h.Stop()
		require.False(t, h.IsRunning())
		require.Empty(t, h.SessionID())
		require.Nil(t, h.Info())

		i, err := h.Wait(context.Background())
		require.Nil(t, i)
		require.NoError(t, err)

		select {
		case <-h.Done():
		default:
			t.Fatal("nil handle should report done")
		}

		h = &Handle{}
		require.Nil(t, h.Info())
		<-h.Done()
	})
}

func TestRuntimeErrorAfterStart(t *testing.T) {
	e := enginetest.New()
	r := newTestRecorder(e, nil)

	h, err := r.Start(context.Background(), testParams(), filepath.Join(t.TempDir(), "out.mkv"))
	require.NoError(t, err)

	g := e.LastGraph()
	g.Post(&engine.Event{
		Type:   engine.EventError,
		Source: builder.RecordSinkName,
		Err:    errors.New("Could not write to resource."),
		Debug:  "Error while writing to file: No space left on device",
	})

	i, err := h.Wait(context.Background())
	var rtErr *errors.RuntimeError
	require.True(t, errors.As(err, &rtErr), "unexpected error: %v", err)
	require.Equal(t, "resource", rtErr.Category)
	require.Equal(t, types.SessionStatusFailed, i.Status)
	require.False(t, h.IsRunning())
	require.Equal(t, 1, g.NullCount())
}

func TestWaitContext(t *testing.T) {
	e := enginetest.New()
	r := newTestRecorder(e, nil)

	h, err := r.Start(context.Background(), testParams(), filepath.Join(t.TempDir(), "out.mkv"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	i, err := h.Wait(ctx)
	require.Nil(t, i)
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	h.Stop()
	waitDone(t, h)
}

func TestSequentialSessions(t *testing.T) {
	e := enginetest.New()
	r := newTestRecorder(e, nil)
	dir := t.TempDir()

	for _, name := range []string{"a.mkv", "b.ts"} {
		h, err := r.Start(context.Background(), testParams(), filepath.Join(dir, name))
		require.NoError(t, err)
		h.Stop()
		i, err := h.Wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, types.SessionStatusComplete, i.Status)
	}

	require.Len(t, e.Graphs(), 2)
	require.Equal(t, 2, e.InitCount())
}
