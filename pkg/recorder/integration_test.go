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

//go:build integration

package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/gstreamer"
	"github.com/livekit/webcam-recorder/pkg/types"
)

type ffprobeInfo struct {
	Streams []struct {
		CodecName  string `json:"codec_name"`
		CodecType  string `json:"codec_type"`
		Width      int32  `json:"width"`
		Height     int32  `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
}

func ffprobe(input string) (*ffprobeInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-print_format", "json",
		input,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", input, err)
	}

	info := &ffprobeInfo{}
	err = json.Unmarshal(out, info)
	return info, err
}

func TestRecordTestSource(t *testing.T) {
	for _, ext := range []string{"mkv", "mp4", "ts"} {
		t.Run(ext, func(t *testing.T) {
			conf := config.DefaultRecorderConfig()
			conf.Elements.Source = "videotestsrc"
			conf.Elements.PreviewSink = "fakesink"
			conf.Elements.Encoder = config.ElementX264Enc
			conf.Debug.DotDir = filepath.Join("..", "..", "test", "output")

			params := &config.CaptureParams{
				Width:     640,
				Height:    480,
				Framerate: config.Fraction{Num: 30, Den: 1},
			}
			destination := filepath.Join(t.TempDir(), "test23."+ext)

			r := New(conf, gstreamer.NewEngine(), nil)
			h, err := r.Start(context.Background(), params, destination)
			require.NoError(t, err)
			require.True(t, h.IsRunning())

			time.Sleep(2 * time.Second)
			Stop(h)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			i, err := h.Wait(ctx)
			require.NoError(t, err)
			require.Equal(t, types.SessionStatusComplete, i.Status)

			probe, err := ffprobe(destination)
			require.NoError(t, err)
			require.NotEqual(t, "0", probe.Format.Size)
			require.Len(t, probe.Streams, 1)
			require.Equal(t, "video", probe.Streams[0].CodecType)
			require.Equal(t, "h264", probe.Streams[0].CodecName)
			require.Equal(t, int32(640), probe.Streams[0].Width)
			require.Equal(t, int32(480), probe.Streams[0].Height)
		})
	}
}
