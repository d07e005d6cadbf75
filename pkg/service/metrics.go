// Package service provides small run-level resource accounting helpers,
// grounded on the teacher's metrics.go (memory/CPU sampling via
// runtime.MemStats and syscall.Rusage) used alongside its atomic request
// counters. qdump has no request-serving component to count, so only the
// resource-usage half is kept, surfaced as a debug-level summary after a
// run completes.
package service

import (
	"runtime"
	"syscall"
)

// ResourceUsage is a point-in-time snapshot of the process's own resource
// consumption.
type ResourceUsage struct {
	MemoryBytes int64   // heap bytes currently allocated (runtime.MemStats.Alloc)
	CPUSeconds  float64 // cumulative user+system CPU time consumed so far
}

// Snapshot reads the current resource usage.
func Snapshot() ResourceUsage {
	return ResourceUsage{
		MemoryBytes: memoryUsage(),
		CPUSeconds:  cpuSeconds(),
	}
}

func memoryUsage() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc)
}

func cpuSeconds() float64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	user := float64(rusage.Utime.Sec) + float64(rusage.Utime.Usec)/1e6
	sys := float64(rusage.Stime.Sec) + float64(rusage.Stime.Usec)/1e6
	return user + sys
}
