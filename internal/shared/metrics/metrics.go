package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisFailedTotal    atomic.Uint64
	specialistFallbacks    atomic.Uint64
	chatStreamsTotal       atomic.Uint64
	chatStreamFailures     atomic.Uint64

	analysisDuration = newHistogram([]float64{500, 1000, 2000, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Add(1)
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Add(1)
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() {
	analysisFailedTotal.Add(1)
}

// IncSpecialistFallback counts a specialist call that resolved to its default.
func IncSpecialistFallback() {
	specialistFallbacks.Add(1)
}

// IncChatStream counts a chat stream started.
func IncChatStream() {
	chatStreamsTotal.Add(1)
}

// IncChatStreamFailure counts a chat stream that ended in an error.
func IncChatStreamFailure() {
	chatStreamFailures.Add(1)
}

// ObserveAnalysisDurationMs records a financial-analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "financial_analysis_started_total", "Total financial analyses started", analysisStartedTotal.Load())
	writeCounter(&buf, "financial_analysis_completed_total", "Total financial analyses completed", analysisCompletedTotal.Load())
	writeCounter(&buf, "financial_analysis_failed_total", "Total financial analyses failed", analysisFailedTotal.Load())
	writeCounter(&buf, "specialist_fallback_total", "Total specialist calls resolved to a default value", specialistFallbacks.Load())
	writeCounter(&buf, "chat_streams_total", "Total chat streams started", chatStreamsTotal.Load())
	writeCounter(&buf, "chat_stream_failures_total", "Total chat streams that failed", chatStreamFailures.Load())
	writeHistogram(&buf, "financial_analysis_duration_ms", "Financial analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

type histogram struct {
	mu      sync.Mutex
	bounds  []float64
	counts  []uint64
	sum     float64
	samples uint64
}

// HistogramSnapshot is an immutable view of a histogram's state.
type HistogramSnapshot struct {
	Bounds  []float64
	Counts  []uint64
	Sum     float64
	Samples uint64
}

func newHistogram(bounds []float64) *histogram {
	sorted := make([]float64, len(bounds))
	copy(sorted, bounds)
	sort.Float64s(sorted)
	return &histogram{
		bounds: sorted,
		counts: make([]uint64, len(sorted)+1),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx := len(h.bounds)
	for i, bound := range h.bounds {
		if value <= bound {
			idx = i
			break
		}
	}
	h.counts[idx]++
	h.sum += value
	h.samples++
}

func (h *histogram) Snapshot() HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	counts := make([]uint64, len(h.counts))
	copy(counts, h.counts)
	return HistogramSnapshot{
		Bounds:  h.bounds,
		Counts:  counts,
		Sum:     h.sum,
		Samples: h.samples,
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap HistogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	cumulative := uint64(0)
	for i, bound := range snap.Bounds {
		cumulative += snap.Counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%g\"} %d\n", name, bound, cumulative)
	}
	cumulative += snap.Counts[len(snap.Counts)-1]
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, cumulative)
	fmt.Fprintf(buf, "%s_sum %g\n", name, snap.Sum)
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.Samples)
}
