package common

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Stats tracks benchmark statistics including throughput and latency.
type Stats struct {
	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time

	roundTrips   int64
	bytesWritten int64
	bytesRead    int64
	busy         int64
	mismatches   int64
	errors       int64

	// Round trip latency in microseconds, 1us to 60s, 3 significant figures.
	latencyHist *hdrhistogram.Histogram
}

// NewStats creates a new Stats instance with HDR histogram initialized.
func NewStats() *Stats {
	return &Stats{
		latencyHist: hdrhistogram.New(1, 60000000, 3),
	}
}

// Start begins the timing period.
func (s *Stats) Start() {
	s.startTime = time.Now()
}

// Stop ends the timing period.
func (s *Stats) Stop() {
	s.endTime = time.Now()
}

// RecordRoundTrip records a completed round trip with the bytes written to
// and read back from the channels, and its latency.
func (s *Stats) RecordRoundTrip(written, read int, d time.Duration) {
	atomic.AddInt64(&s.roundTrips, 1)
	atomic.AddInt64(&s.bytesWritten, int64(written))
	atomic.AddInt64(&s.bytesRead, int64(read))
	s.mu.Lock()
	s.latencyHist.RecordValue(d.Microseconds())
	s.mu.Unlock()
}

// RecordBusy counts an open attempt rejected because the channel was held.
func (s *Stats) RecordBusy() {
	atomic.AddInt64(&s.busy, 1)
}

// RecordMismatch counts a round trip whose plaintext did not survive.
func (s *Stats) RecordMismatch() {
	atomic.AddInt64(&s.mismatches, 1)
}

// RecordError increments the error counter.
func (s *Stats) RecordError() {
	atomic.AddInt64(&s.errors, 1)
}

// Duration returns the total benchmark duration.
func (s *Stats) Duration() time.Duration {
	return s.endTime.Sub(s.startTime)
}

// RoundTrips returns the number of completed round trips.
func (s *Stats) RoundTrips() int64 {
	return atomic.LoadInt64(&s.roundTrips)
}

// BytesWritten returns the total bytes written to channels.
func (s *Stats) BytesWritten() int64 {
	return atomic.LoadInt64(&s.bytesWritten)
}

// BytesRead returns the total bytes read from channels.
func (s *Stats) BytesRead() int64 {
	return atomic.LoadInt64(&s.bytesRead)
}

// Busy returns the number of rejected open attempts.
func (s *Stats) Busy() int64 {
	return atomic.LoadInt64(&s.busy)
}

// Mismatches returns the number of failed plaintext comparisons.
func (s *Stats) Mismatches() int64 {
	return atomic.LoadInt64(&s.mismatches)
}

// Errors returns the total error count.
func (s *Stats) Errors() int64 {
	return atomic.LoadInt64(&s.errors)
}

// RoundTripsPerSecond calculates the round trip throughput.
func (s *Stats) RoundTripsPerSecond() float64 {
	duration := s.Duration().Seconds()
	if duration == 0 {
		return 0
	}
	return float64(s.RoundTrips()) / duration
}

// BytesPerSecond calculates the byte throughput in both directions.
func (s *Stats) BytesPerSecond() float64 {
	duration := s.Duration().Seconds()
	if duration == 0 {
		return 0
	}
	return float64(s.BytesWritten()+s.BytesRead()) / duration
}

// LatencyPercentile returns the latency at a given percentile.
func (s *Stats) LatencyPercentile(p float64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.latencyHist.ValueAtQuantile(p)) * time.Microsecond
}

// LatencyMean returns the mean latency.
func (s *Stats) LatencyMean() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.latencyHist.Mean()) * time.Microsecond
}

// LatencyMin returns the minimum latency recorded.
func (s *Stats) LatencyMin() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.latencyHist.Min()) * time.Microsecond
}

// LatencyMax returns the maximum latency recorded.
func (s *Stats) LatencyMax() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.latencyHist.Max()) * time.Microsecond
}

// LatencyCount returns the number of latency samples recorded.
func (s *Stats) LatencyCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latencyHist.TotalCount()
}
