package aisen

import (
	"os"
	"runtime"
	"time"
)

// processStart stands in for a zero start time.
var processStart = time.Now()

// SystemState is a snapshot of the serving process when an event is recorded.
type SystemState struct {
	MemoryBytes    int64
	GoroutineCount int
	NumCPU         int
	GoVersion      string

	// UptimeMs is measured from the start time given to WithSystemState.
	UptimeMs int64
	HostName string
}

// CaptureSystemState reads runtime metrics now. A zero startTime means the
// time this package was initialised; a future one yields zero uptime.
func CaptureSystemState(startTime time.Time) *SystemState {
	if startTime.IsZero() {
		startTime = processStart
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	hostname, _ := os.Hostname()

	return &SystemState{
		MemoryBytes:    int64(mem.Alloc),
		GoroutineCount: runtime.NumGoroutine(),
		NumCPU:         runtime.NumCPU(),
		GoVersion:      runtime.Version(),
		UptimeMs:       max(time.Since(startTime).Milliseconds(), 0),
		HostName:       hostname,
	}
}
