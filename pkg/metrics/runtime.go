package metrics

import (
	"runtime"
	"runtime/pprof"
	"time"
)

// RuntimeCollector collects Go runtime metrics.
type RuntimeCollector struct {
	goroutines  *Gauge
	threads     *Gauge
	heapAlloc   *Gauge
	heapSys     *Gauge
	heapInuse   *Gauge
	heapObjects *Gauge
	stackInuse  *Gauge
	gcPauseSecs *Gauge
	gcCycles    *Gauge
	goInfo      *Gauge

	// Uptime gauge (passed in from defaults)
	uptime *Gauge

	startTime time.Time
}

// NewRuntimeCollector creates a new runtime metrics collector and registers
// its metrics. The uptimeGauge parameter should be the UptimeSeconds gauge
// from defaults.
func NewRuntimeCollector(r *Registry, uptimeGauge *Gauge) *RuntimeCollector {
	rc := &RuntimeCollector{
		startTime: time.Now(),
		uptime:    uptimeGauge,

		goroutines: r.NewGauge(
			"go_goroutines",
			"Number of goroutines that currently exist",
		),
		threads: r.NewGauge(
			"go_threads",
			"Number of OS threads created",
		),
		heapAlloc: r.NewGauge(
			"go_memstats_heap_alloc_bytes",
			"Number of heap bytes allocated and still in use",
		),
		heapSys: r.NewGauge(
			"go_memstats_heap_sys_bytes",
			"Number of heap bytes obtained from system",
		),
		heapInuse: r.NewGauge(
			"go_memstats_heap_inuse_bytes",
			"Number of heap bytes that are in use",
		),
		heapObjects: r.NewGauge(
			"go_memstats_heap_objects",
			"Number of allocated heap objects",
		),
		stackInuse: r.NewGauge(
			"go_memstats_stack_inuse_bytes",
			"Number of bytes in use by the stack allocator",
		),
		gcPauseSecs: r.NewGauge(
			"go_gc_duration_seconds",
			"Total GC pause duration in seconds",
		),
		gcCycles: r.NewGauge(
			"go_gc_cycles_total",
			"Total number of completed GC cycles",
		),
		goInfo: r.NewGauge(
			"go_info",
			"Information about the Go environment",
			"version",
		),
	}

	if vec, err := rc.goInfo.WithLabels(runtime.Version()); err == nil {
		vec.Set(1)
	}

	return rc
}

// Collect updates all runtime metrics with current values.
// Call this periodically to keep metrics current.
func (rc *RuntimeCollector) Collect() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	_ = rc.uptime.Set(time.Since(rc.startTime).Seconds())
	_ = rc.goroutines.Set(float64(runtime.NumGoroutine()))

	// OS thread count from the pprof threadcreate profile.
	if p := pprof.Lookup("threadcreate"); p != nil {
		_ = rc.threads.Set(float64(p.Count()))
	}

	_ = rc.heapAlloc.Set(float64(mem.HeapAlloc))
	_ = rc.heapSys.Set(float64(mem.HeapSys))
	_ = rc.heapInuse.Set(float64(mem.HeapInuse))
	_ = rc.heapObjects.Set(float64(mem.HeapObjects))
	_ = rc.stackInuse.Set(float64(mem.StackInuse))

	// PauseTotalNs is the authoritative cumulative total; the PauseNs
	// circular buffer wraps after 256 entries.
	_ = rc.gcPauseSecs.Set(float64(mem.PauseTotalNs) / 1e9)
	_ = rc.gcCycles.Set(float64(mem.NumGC))
}

// StartCollector starts a goroutine that periodically collects runtime
// metrics. Returns a stop function to cancel the collection.
func (rc *RuntimeCollector) StartCollector(interval time.Duration) func() {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		rc.Collect()
		for {
			select {
			case <-ticker.C:
				rc.Collect()
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
