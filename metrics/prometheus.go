package metrics

import (
	"fmt"
	"math"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Exporter serves a Registry in Prometheus text exposition format. It
// implements http.Handler so it mounts directly on the API router.
type Exporter struct {
	namespace string
	registry  *Registry
}

// NewExporter creates an exporter that reads from the given registry.
// Metric names are prefixed with namespace; dots become underscores.
func NewExporter(registry *Registry, namespace string) *Exporter {
	return &Exporter{namespace: namespace, registry: registry}
}

func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	var b strings.Builder
	e.writeRegistryMetrics(&b)
	e.writeRuntimeMetrics(&b)
	w.Write([]byte(b.String()))
}

// writeRegistryMetrics formats all metrics from the registry in sorted
// order for deterministic output.
func (e *Exporter) writeRegistryMetrics(b *strings.Builder) {
	e.registry.mu.RLock()
	defer e.registry.mu.RUnlock()

	for _, name := range sortedKeys(e.registry.counters) {
		c := e.registry.counters[name]
		promName := e.promName(name)
		writeHelp(b, promName, name)
		writeType(b, promName, "counter")
		fmt.Fprintf(b, "%s %d\n", promName, c.Value())
	}

	for _, name := range sortedKeys(e.registry.gauges) {
		g := e.registry.gauges[name]
		promName := e.promName(name)
		writeHelp(b, promName, name)
		writeType(b, promName, "gauge")
		fmt.Fprintf(b, "%s %d\n", promName, g.Value())
	}

	// Histograms: emit _count, _sum, _min, _max, _mean.
	for _, name := range sortedKeys(e.registry.histograms) {
		h := e.registry.histograms[name]
		promName := e.promName(name)
		writeHelp(b, promName, name)
		writeType(b, promName, "summary")
		fmt.Fprintf(b, "%s_count %d\n", promName, h.Count())
		fmt.Fprintf(b, "%s_sum %s\n", promName, formatFloat(h.Sum()))
		if h.Count() > 0 {
			fmt.Fprintf(b, "%s_min %s\n", promName, formatFloat(h.Min()))
			fmt.Fprintf(b, "%s_max %s\n", promName, formatFloat(h.Max()))
			fmt.Fprintf(b, "%s_mean %s\n", promName, formatFloat(h.Mean()))
		}
	}
}

// writeRuntimeMetrics emits Go runtime metrics: goroutines, memory, GC.
func (e *Exporter) writeRuntimeMetrics(b *strings.Builder) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	prefix := e.namespace
	if prefix != "" {
		prefix += "_"
	}

	goroutineName := prefix + "go_goroutines"
	writeHelp(b, goroutineName, "Number of active goroutines")
	writeType(b, goroutineName, "gauge")
	fmt.Fprintf(b, "%s %d\n", goroutineName, runtime.NumGoroutine())

	writeMemMetric(b, prefix+"go_memstats_alloc_bytes", "gauge",
		"Bytes of allocated heap objects", m.Alloc)
	writeMemMetric(b, prefix+"go_memstats_alloc_bytes_total", "counter",
		"Total bytes allocated", m.TotalAlloc)
	writeMemMetric(b, prefix+"go_memstats_sys_bytes", "gauge",
		"Bytes of memory obtained from the OS", m.Sys)
	writeMemMetric(b, prefix+"go_memstats_heap_objects", "gauge",
		"Number of allocated heap objects", m.HeapObjects)

	gcName := prefix + "go_gc_duration_seconds_count"
	writeHelp(b, gcName, "Total number of GC cycles")
	writeType(b, gcName, "counter")
	fmt.Fprintf(b, "%s %d\n", gcName, m.NumGC)

	startName := prefix + "process_start_time_seconds"
	writeHelp(b, startName, "Process start time in seconds since epoch")
	writeType(b, startName, "gauge")
	fmt.Fprintf(b, "%s %s\n", startName,
		formatFloat(float64(processStartTime.Unix())))
}

// promName converts a dot-separated metric name to Prometheus format:
// dots become underscores, and the namespace prefix is prepended.
func (e *Exporter) promName(name string) string {
	sanitized := strings.ReplaceAll(name, ".", "_")
	sanitized = strings.ReplaceAll(sanitized, "-", "_")
	if e.namespace != "" {
		return e.namespace + "_" + sanitized
	}
	return sanitized
}

// formatFloat formats a float64 for Prometheus output, handling special
// values.
func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%g", v)
}

func writeHelp(b *strings.Builder, name, description string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, description)
}

func writeType(b *strings.Builder, name, metricType string) {
	fmt.Fprintf(b, "# TYPE %s %s\n", name, metricType)
}

func writeMemMetric(b *strings.Builder, name, metricType, help string, value uint64) {
	writeHelp(b, name, help)
	writeType(b, name, metricType)
	fmt.Fprintf(b, "%s %d\n", name, value)
}

// sortedKeys returns a sorted list of keys from a map of any metric
// type.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// processStartTime is recorded at init for process_start_time_seconds.
var processStartTime = time.Now()
