package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	sessionStartedTotal   atomic.Uint64
	sessionCompletedTotal atomic.Uint64
	sessionDegradedTotal  atomic.Uint64
	sessionFailedTotal    atomic.Uint64
	sealFailedTotal       atomic.Uint64

	sealJobsReceivedTotal             atomic.Uint64
	sealJobsCompletedTotal            atomic.Uint64
	sealJobsFailedTotal               atomic.Uint64
	sealJobsDeletedUnrecoverableTotal atomic.Uint64

	sessionDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 8000, 15000, 30000})
)

// IncSessionStarted increments the started counter.
func IncSessionStarted() {
	sessionStartedTotal.Add(1)
}

// IncSessionCompleted increments the completed counter.
func IncSessionCompleted() {
	sessionCompletedTotal.Add(1)
}

// IncSessionDegraded increments the degraded counter.
func IncSessionDegraded() {
	sessionDegradedTotal.Add(1)
}

// IncSessionFailed increments the failed counter.
func IncSessionFailed() {
	sessionFailedTotal.Add(1)
}

// IncSealFailed increments the seal-failure counter.
func IncSealFailed() {
	sealFailedTotal.Add(1)
}

// IncSealJobsReceived increments the queue-job received counter.
func IncSealJobsReceived() {
	sealJobsReceivedTotal.Add(1)
}

// IncSealJobsCompleted increments the queue-job completed counter.
func IncSealJobsCompleted() {
	sealJobsCompletedTotal.Add(1)
}

// IncSealJobsFailed increments the queue-job failed counter.
func IncSealJobsFailed() {
	sealJobsFailedTotal.Add(1)
}

// IncSealJobsDeletedUnrecoverable increments the counter for queue
// messages dropped as unparseable.
func IncSealJobsDeletedUnrecoverable() {
	sealJobsDeletedUnrecoverableTotal.Add(1)
}

// ObserveSessionDurationMs records a session duration in milliseconds.
func ObserveSessionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	sessionDuration.Observe(value)
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
	writeCounter(&buf, "session_started_total", "Total analysis sessions started", sessionStartedTotal.Load())
	writeCounter(&buf, "session_completed_total", "Total analysis sessions completed", sessionCompletedTotal.Load())
	writeCounter(&buf, "session_degraded_total", "Total completed sessions missing at least one specialist", sessionDegradedTotal.Load())
	writeCounter(&buf, "session_failed_total", "Total analysis sessions failed", sessionFailedTotal.Load())
	writeCounter(&buf, "seal_failed_total", "Total seal attempts that failed", sealFailedTotal.Load())
	writeCounter(&buf, "seal_jobs_received_total", "Total seal queue jobs received", sealJobsReceivedTotal.Load())
	writeCounter(&buf, "seal_jobs_completed_total", "Total seal queue jobs completed", sealJobsCompletedTotal.Load())
	writeCounter(&buf, "seal_jobs_failed_total", "Total seal queue jobs failed", sealJobsFailedTotal.Load())
	writeCounter(&buf, "seal_jobs_deleted_unrecoverable_total", "Total seal queue jobs dropped as unparseable", sealJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "session_duration_ms", "Session duration in milliseconds", sessionDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
