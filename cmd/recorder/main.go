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

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/config"
	"github.com/livekit/webcam-recorder/pkg/gstreamer"
	"github.com/livekit/webcam-recorder/pkg/info"
	"github.com/livekit/webcam-recorder/pkg/recorder"
	"github.com/livekit/webcam-recorder/pkg/stats"
	"github.com/livekit/webcam-recorder/version"
)

func main() {
	cmd := &cli.Command{
		Name:        "webcam-recorder",
		Usage:       "LiveKit Webcam Recorder",
		Version:     version.Version,
		Description: "previews the default camera while recording it to an h264 file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "yaml config file",
				Sources: cli.EnvVars("RECORDER_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "config-body",
				Usage:   "yaml config body",
				Sources: cli.EnvVars("RECORDER_CONFIG_BODY"),
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "recording destination, the extension selects the container",
				Value: "test23.mkv",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "stop after this long, 0 records until interrupted",
				Value: 10 * time.Second,
			},
		},
		Action: runRecorder,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runRecorder(ctx context.Context, c *cli.Command) error {
	conf, err := getConfig(c)
	if err != nil {
		return err
	}
	if err = conf.InitLogger(); err != nil {
		return err
	}

	monitor := stats.NewMonitor(prometheus.Labels{"version": version.Version})
	if conf.PrometheusPort != 0 {
		go func() {
			addr := fmt.Sprintf(":%d", conf.PrometheusPort)
			if err := http.ListenAndServe(addr, newHTTPHandler(monitor)); err != nil {
				logger.Errorw("http server failed", err)
			}
		}()
	}

	rec := recorder.New(conf, gstreamer.NewEngine(), monitor)
	h, err := rec.Start(ctx, &conf.Capture, c.String("output"))
	if err != nil {
		return err
	}
	logger.Infow("recording", "sessionID", h.SessionID(), "destination", c.String("output"))

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(stopChan)

	var timeout <-chan time.Time
	if d := c.Duration("duration"); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case sig := <-stopChan:
		logger.Infow("exit requested, finishing recording", "signal", sig)
	case <-timeout:
		logger.Infow("duration reached, finishing recording")
	case <-h.Done():
	}
	recorder.Stop(h)

	i, err := h.Wait(ctx)
	logResult(i)
	if summaryErr := monitor.WriteSummary(os.Stdout); summaryErr != nil {
		logger.Warnw("failed to write summary", summaryErr)
	}
	return err
}

func getConfig(c *cli.Command) (*config.RecorderConfig, error) {
	configFile := c.String("config")
	configBody := c.String("config-body")
	if configBody == "" && configFile != "" {
		content, err := os.ReadFile(configFile)
		if err != nil {
			return nil, err
		}
		configBody = string(content)
	}
	return config.NewRecorderConfig(configBody)
}

func logResult(i *info.SessionInfo) {
	if i == nil {
		return
	}

	values := []interface{}{
		"sessionID", i.SessionID,
		"status", i.Status,
		"duration", i.Duration(),
		"location", i.Location,
	}
	if i.Details != "" {
		values = append(values, "details", i.Details)
	}
	if i.Error != "" {
		values = append(values, "error", i.Error)
		logger.Warnw("recording failed", nil, values...)
		return
	}
	logger.Infow("recording finished", values...)
}
