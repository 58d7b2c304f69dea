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

package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/atomic"

	"github.com/livekit/webcam-recorder/pkg/types"
)

const (
	namespace = "livekit"
	subsystem = "recorder"
)

// Monitor owns the recorder's metrics. Every method is safe on a nil Monitor.
type Monitor struct {
	registry *prometheus.Registry

	activeSessions      atomic.Int32
	sessionsCounter     *prometheus.CounterVec
	startLatency        prometheus.Histogram
	sessionDuration     prometheus.Histogram
	runtimeErrors       *prometheus.CounterVec
	eosTimeouts         prometheus.Counter
	uploadsCounter      *prometheus.CounterVec
	uploadsResponseTime *prometheus.HistogramVec
	backupWrites        *prometheus.CounterVec
	cpuLoad             prometheus.Gauge
	memoryUsed          prometheus.Gauge
}

func NewMonitor(constLabels prometheus.Labels) *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
	}

	promActiveSessions := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "active_sessions",
		Help:        "Number of capture sessions currently running",
		ConstLabels: constLabels,
	}, func() float64 {
		return float64(m.activeSessions.Load())
	})

	m.sessionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "sessions",
		Help:        "Number of finished capture sessions by final status",
		ConstLabels: constLabels,
	}, []string{"status"}) // status: complete, failed, aborted

	m.startLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "start_latency_ms",
		Help:        "Time from start request until the capture graph reached playing",
		Buckets:     []float64{10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
		ConstLabels: constLabels,
	})

	m.sessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "session_duration_seconds",
		Help:        "Length of capture sessions that reached playing",
		Buckets:     []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600},
		ConstLabels: constLabels,
	})

	m.runtimeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "runtime_errors",
		Help:        "Fatal engine errors by category",
		ConstLabels: constLabels,
	}, []string{"category"})

	m.eosTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "eos_timeouts",
		Help:        "Sessions whose end of stream did not arrive in time",
		ConstLabels: constLabels,
	})

	m.uploadsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "uploads",
		Help:        "Number of recording uploads with type and status labels",
		ConstLabels: constLabels,
	}, []string{"type", "status"}) // status: success, failure

	m.uploadsResponseTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "upload_response_time_ms",
		Help:        "A histogram of latencies for upload requests in milliseconds.",
		Buckets:     []float64{10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 15000, 20000, 30000},
		ConstLabels: constLabels,
	}, []string{"type", "status"})

	m.backupWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "backup_storage_writes",
		Help:        "Uploads that fell back to backup storage",
		ConstLabels: constLabels,
	}, []string{"type"})

	m.cpuLoad = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "cpu_load",
		Help:        "System cpu usage in percent, sampled while a session is running",
		ConstLabels: constLabels,
	})

	m.memoryUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        "memory_used_bytes",
		Help:        "System memory in use, sampled while a session is running",
		ConstLabels: constLabels,
	})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promActiveSessions,
		m.sessionsCounter,
		m.startLatency,
		m.sessionDuration,
		m.runtimeErrors,
		m.eosTimeouts,
		m.uploadsCounter,
		m.uploadsResponseTime,
		m.backupWrites,
		m.cpuLoad,
		m.memoryUsed,
	)

	return m
}

func (m *Monitor) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Monitor) SessionStarted(latency time.Duration) {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
	m.startLatency.Observe(float64(latency.Milliseconds()))
}

// SessionEnded records a final status. wasRunning must match a prior SessionStarted.
func (m *Monitor) SessionEnded(status types.SessionStatus, wasRunning bool, duration time.Duration) {
	if m == nil {
		return
	}
	if wasRunning {
		m.activeSessions.Dec()
		m.sessionDuration.Observe(duration.Seconds())
	}
	m.sessionsCounter.With(prometheus.Labels{"status": string(status)}).Inc()
}

func (m *Monitor) IncRuntimeError(category string) {
	if m == nil {
		return
	}
	m.runtimeErrors.With(prometheus.Labels{"category": category}).Inc()
}

func (m *Monitor) IncEOSTimeout() {
	if m == nil {
		return
	}
	m.eosTimeouts.Inc()
}

func (m *Monitor) IncUploadCountSuccess(uploadType string, elapsed float64) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"type": uploadType, "status": "success"}
	m.uploadsCounter.With(labels).Add(1)
	m.uploadsResponseTime.With(labels).Observe(elapsed)
}

func (m *Monitor) IncUploadCountFailure(uploadType string, elapsed float64) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"type": uploadType, "status": "failure"}
	m.uploadsCounter.With(labels).Add(1)
	m.uploadsResponseTime.With(labels).Observe(elapsed)
}

func (m *Monitor) IncBackupStorageWrites(uploadType string) {
	if m == nil {
		return
	}
	m.backupWrites.With(prometheus.Labels{"type": uploadType}).Inc()
}

func (m *Monitor) SetSystemLoad(cpuLoad float64, memoryUsed uint64) {
	if m == nil {
		return
	}
	m.cpuLoad.Set(cpuLoad)
	m.memoryUsed.Set(float64(memoryUsed))
}
