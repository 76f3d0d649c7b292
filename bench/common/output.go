package common

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// BenchmarkResult holds the formatted benchmark results.
type BenchmarkResult struct {
	Duration            string  `json:"duration"`
	RoundTrips          int64   `json:"round_trips"`
	BytesWritten        int64   `json:"bytes_written"`
	BytesRead           int64   `json:"bytes_read"`
	RoundTripsPerSecond float64 `json:"round_trips_per_second"`
	BytesPerSecond      float64 `json:"bytes_per_second"`
	LatencyMin          string  `json:"latency_min,omitempty"`
	LatencyMean         string  `json:"latency_mean,omitempty"`
	LatencyP50          string  `json:"latency_p50,omitempty"`
	LatencyP95          string  `json:"latency_p95,omitempty"`
	LatencyP99          string  `json:"latency_p99,omitempty"`
	LatencyP999         string  `json:"latency_p999,omitempty"`
	LatencyMax          string  `json:"latency_max,omitempty"`
	Busy                int64   `json:"busy"`
	Mismatches          int64   `json:"mismatches"`
	Errors              int64   `json:"errors"`
}

// NewBenchmarkResult snapshots stats into a BenchmarkResult.
func NewBenchmarkResult(stats *Stats) BenchmarkResult {
	result := BenchmarkResult{
		Duration:            stats.Duration().String(),
		RoundTrips:          stats.RoundTrips(),
		BytesWritten:        stats.BytesWritten(),
		BytesRead:           stats.BytesRead(),
		RoundTripsPerSecond: stats.RoundTripsPerSecond(),
		BytesPerSecond:      stats.BytesPerSecond(),
		Busy:                stats.Busy(),
		Mismatches:          stats.Mismatches(),
		Errors:              stats.Errors(),
	}

	// Include latency stats if we have samples
	if stats.LatencyCount() > 0 {
		result.LatencyMin = stats.LatencyMin().String()
		result.LatencyMean = stats.LatencyMean().String()
		result.LatencyP50 = stats.LatencyPercentile(50).String()
		result.LatencyP95 = stats.LatencyPercentile(95).String()
		result.LatencyP99 = stats.LatencyPercentile(99).String()
		result.LatencyP999 = stats.LatencyPercentile(99.9).String()
		result.LatencyMax = stats.LatencyMax().String()
	}
	return result
}

// PrintResults writes the benchmark results to w as text or json.
func PrintResults(w io.Writer, stats *Stats, format string) error {
	result := NewBenchmarkResult(stats)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		return printText(w, result)
	}
}

func printText(out io.Writer, r BenchmarkResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== Round Trip Benchmark Results ===")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:\t%s\n", r.Duration)
	fmt.Fprintf(w, "Round Trips:\t%s\n", humanize.Comma(r.RoundTrips))
	fmt.Fprintf(w, "Bytes Written:\t%s\n", humanize.Bytes(uint64(r.BytesWritten)))
	fmt.Fprintf(w, "Bytes Read:\t%s\n", humanize.Bytes(uint64(r.BytesRead)))
	fmt.Fprintf(w, "Throughput:\t%s round trips/sec\n", humanize.CommafWithDigits(r.RoundTripsPerSecond, 2))
	fmt.Fprintf(w, "Bandwidth:\t%s/sec\n", humanize.Bytes(uint64(r.BytesPerSecond)))
	fmt.Fprintln(w, "")

	if r.LatencyP50 != "" {
		fmt.Fprintln(w, "--- Round Trip Latency ---")
		fmt.Fprintf(w, "Min:\t%s\n", r.LatencyMin)
		fmt.Fprintf(w, "Mean:\t%s\n", r.LatencyMean)
		fmt.Fprintf(w, "P50:\t%s\n", r.LatencyP50)
		fmt.Fprintf(w, "P95:\t%s\n", r.LatencyP95)
		fmt.Fprintf(w, "P99:\t%s\n", r.LatencyP99)
		fmt.Fprintf(w, "P99.9:\t%s\n", r.LatencyP999)
		fmt.Fprintf(w, "Max:\t%s\n", r.LatencyMax)
		fmt.Fprintln(w, "")
	}

	fmt.Fprintf(w, "Busy:\t%d\n", r.Busy)
	fmt.Fprintf(w, "Mismatches:\t%d\n", r.Mismatches)
	fmt.Fprintf(w, "Errors:\t%d\n", r.Errors)
	fmt.Fprintln(w, "")
	return w.Flush()
}
