//go:build integration

package gstreamer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livekit/webcam-recorder/pkg/engine"
)

func TestParseDebugInfo(t *testing.T) {
	element, reason, ok := parseDebugInfo("../libs/gst/base/gstbasesrc.c(3127): gst_base_src_loop (): /GstPipeline:pipeline/GstV4l2Src:video_source:\nstreaming stopped, reason not-negotiated (-4)")
	require.True(t, ok)
	require.Equal(t, "video_source", element)
	require.Equal(t, "streaming stopped, reason not-negotiated (-4)", reason)

	_, _, ok = parseDebugInfo("no element here")
	require.False(t, ok)
}

func TestPipelinePlayToEOS(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Init())
	require.NoError(t, e.Init())

	g, err := e.NewGraph("pipeline")
	require.NoError(t, err)

	src, err := g.NewElement("videotestsrc", "video_source")
	require.NoError(t, err)
	require.NoError(t, src.SetProperty("num-buffers", 30))
	caps, err := g.NewElement("capsfilter", "capture_caps")
	require.NoError(t, err)
	require.NoError(t, caps.SetProperty("caps", engine.Caps("video/x-raw,width=320,height=240,framerate=30/1")))
	sink, err := g.NewElement("fakesink", "sink")
	require.NoError(t, err)
	require.Equal(t, "fakesink", sink.Factory())
	require.NotContains(t, sink.Klass(), "Muxer")

	require.NoError(t, g.Add(src, caps, sink))
	require.NoError(t, g.Link(src, caps))
	require.NoError(t, g.Link(caps, sink))
	require.NoError(t, g.SetState(engine.StatePlaying))

	var playing, eos bool
	deadline := time.Now().Add(10 * time.Second)
	for !eos && time.Now().Before(deadline) {
		ev := g.NextEvent(100 * time.Millisecond)
		if ev == nil {
			continue
		}
		switch ev.Type {
		case engine.EventStateChanged:
			if ev.Source == g.Name() && ev.New == engine.StatePlaying {
				playing = true
			}
		case engine.EventEOS:
			eos = true
		case engine.EventError:
			t.Fatalf("unexpected error from %s: %v", ev.Source, ev.Err)
		}
	}
	require.True(t, playing)
	require.True(t, eos)
	require.NotEmpty(t, g.DebugDot())

	require.NoError(t, g.SetState(engine.StateNull))
	require.Equal(t, engine.StateNull, g.CurrentState())
	require.Nil(t, g.NextEvent(10*time.Millisecond))
}

func TestNewElementUnknownFactory(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Init())

	g, err := e.NewGraph("pipeline")
	require.NoError(t, err)
	_, err = g.NewElement("notarealelement", "x")
	require.Error(t, err)
}
