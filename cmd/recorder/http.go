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
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livekit/protocol/logger"
	"github.com/livekit/webcam-recorder/pkg/errors"
	"github.com/livekit/webcam-recorder/pkg/pprof"
	"github.com/livekit/webcam-recorder/pkg/stats"
)

func newHTTPHandler(monitor *stats.Monitor) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(monitor.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/debug/pprof/{profile}", handleProfile)
	return mux
}

func handleProfile(w http.ResponseWriter, r *http.Request) {
	seconds, _ := strconv.Atoi(r.URL.Query().Get("seconds"))
	debug, _ := strconv.Atoi(r.URL.Query().Get("debug"))

	w.Header().Set("Content-Type", "application/octet-stream")
	err := pprof.WriteProfile(r.Context(), w, r.PathValue("profile"), time.Duration(seconds)*time.Second, debug)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrProfileNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		logger.Warnw("failed to write profile", err)
	}
}
