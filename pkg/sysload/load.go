package sysload

import (
	"fmt"
	"runtime"
	"time"

	"github.com/mackerelio/go-osstat/cpu"
	"github.com/pbnjay/memory"

	"github.com/livekit/protocol/logger"
)

const (
	sampleInterval = time.Second
	highLoad       = 90.0
)

// Sample is one reading of system load.
type Sample struct {
	CPULoad    float64 // percent of all cpus
	MemoryUsed uint64  // bytes
}

// MonitorLoad samples system load until done is closed, passing each sample to onSample,
// then logs the average and peak cpu load seen during the session.
func MonitorLoad(sessionID string, done <-chan struct{}, onSample func(Sample)) {
	prev, err := cpu.Get()
	if err != nil {
		logger.Debugw("cpu stats unavailable", "error", err)
		return
	}

	t := &loadTracker{}
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			if avg, peak, ok := t.summary(); ok {
				numCPUs := runtime.NumCPU()
				logger.Infow("cpu load",
					"sessionID", sessionID,
					"avg load", fmt.Sprintf("%.2f%% (%.2f/%v)", avg, avg*float64(numCPUs)/100, numCPUs),
					"max load", fmt.Sprintf("%.2f%% (%.2f/%v)", peak, peak*float64(numCPUs)/100, numCPUs),
				)
			}
			return

		case <-ticker.C:
			next, err := cpu.Get()
			if err != nil {
				continue
			}
			load, ok := t.add(prev.Idle, prev.Total, next.Idle, next.Total)
			prev = next
			if !ok {
				continue
			}

			if load > highLoad && !t.warned {
				t.warned = true
				logger.Infow("high cpu load, frames may be dropped", "sessionID", sessionID, "load", load)
			}
			if onSample != nil {
				onSample(Sample{
					CPULoad:    load,
					MemoryUsed: memoryUsed(),
				})
			}
		}
	}
}

func memoryUsed() uint64 {
	total := memory.TotalMemory()
	free := memory.FreeMemory()
	if free > total {
		return 0
	}
	return total - free
}

type loadTracker struct {
	count     float64
	idleTotal float64
	idleMin   float64
	warned    bool
}

// add records the interval between two counter readings and returns its load in percent.
func (t *loadTracker) add(prevIdle, prevTotal, idle, total uint64) (float64, bool) {
	if total <= prevTotal || idle < prevIdle {
		return 0, false
	}

	idlePercent := float64(idle-prevIdle) / float64(total-prevTotal) * 100
	if t.count == 0 || idlePercent < t.idleMin {
		t.idleMin = idlePercent
	}
	t.idleTotal += idlePercent
	t.count++
	return 100 - idlePercent, true
}

func (t *loadTracker) summary() (avg, peak float64, ok bool) {
	if t.count == 0 {
		return 0, 0, false
	}
	return 100 - t.idleTotal/t.count, 100 - t.idleMin, true
}
