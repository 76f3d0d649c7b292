package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/shiftd-io/shiftd/api"
	"github.com/shiftd-io/shiftd/bench/common"
)

func main() {
	app := cli.NewApp()
	app.Name = "shiftd-bench-roundtrip"
	app.Usage = "Benchmark tool for shiftd encrypt/decrypt round trips"
	app.Version = "1.0.0"
	app.Flags = getFlags()
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "server, s",
			Usage:  "shiftd server address",
			Value:  "localhost:9393",
			EnvVar: "SHIFTD_SERVER",
		},
		cli.IntFlag{
			Name:  "round-trips, n",
			Usage: "Total number of encrypt/decrypt round trips",
			Value: 10000,
		},
		cli.IntFlag{
			Name:  "payload-size, ps",
			Usage: "Size of each plaintext in bytes (capped at the channel capacity)",
			Value: 40,
		},
		cli.IntFlag{
			Name:  "read-chunk, rc",
			Usage: "Maximum bytes requested per read",
			Value: 16,
		},
		cli.IntFlag{
			Name:  "concurrent, c",
			Usage: "Number of concurrent clients contending for the channels",
			Value: 1,
		},
		cli.DurationFlag{
			Name:  "busy-backoff",
			Usage: "Wait before retrying an open rejected because the channel is held",
			Value: 100 * time.Microsecond,
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "Seed for payload generation",
			Value: 1,
		},
		cli.StringFlag{
			Name:  "output, o",
			Usage: "Output format: text, json",
			Value: "text",
		},
	}
}

func run(c *cli.Context) error {
	server := strings.TrimSpace(c.String("server"))
	numRoundTrips := c.Int("round-trips")
	payloadSize := c.Int("payload-size")
	readChunk := c.Int("read-chunk")
	concurrent := c.Int("concurrent")
	backoff := c.Duration("busy-backoff")
	outputFormat := c.String("output")

	// Validate
	if numRoundTrips <= 0 {
		return fmt.Errorf("round-trips must be > 0")
	}
	if payloadSize <= 0 {
		return fmt.Errorf("payload-size must be > 0")
	}
	if readChunk <= 0 {
		return fmt.Errorf("read-chunk must be > 0")
	}
	if concurrent <= 0 {
		concurrent = 1
	}

	fmt.Printf("Connecting to shiftd: %s\n", server)
	client, err := api.Connect(server)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()

	// Pre-generate payloads (NOT timed)
	payloads := common.PreGeneratePayloads(numRoundTrips, payloadSize, c.Int64("seed"))
	fmt.Printf("Generated %d payloads (%d bytes total)\n",
		len(payloads), common.TotalByteSize(payloads))

	stats := common.NewStats()

	fmt.Printf("Starting benchmark with %d concurrent client(s), read-chunk=%d...\n", concurrent, readChunk)
	fmt.Println("---")

	b := &bench{
		client:    client,
		readChunk: readChunk,
		backoff:   backoff,
		stats:     stats,
	}
	stats.Start()
	b.run(context.Background(), payloads, concurrent)
	stats.Stop()

	return common.PrintResults(os.Stdout, stats, outputFormat)
}

type bench struct {
	client    *api.Client
	readChunk int
	backoff   time.Duration
	stats     *common.Stats
}

func (b *bench) run(ctx context.Context, payloads [][]byte, concurrent int) {
	var (
		wg        sync.WaitGroup
		completed int64
		next      int64 = -1
		total           = len(payloads)
	)

	progressTicker := time.NewTicker(2 * time.Second)
	defer progressTicker.Stop()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-progressTicker.C:
				count := atomic.LoadInt64(&completed)
				pct := float64(count) / float64(total) * 100
				fmt.Printf("Progress: %d/%d (%.1f%%)\n", count, total, pct)
			case <-done:
				return
			}
		}
	}()

	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := atomic.AddInt64(&next, 1)
				if idx >= int64(total) {
					return
				}
				b.roundTrip(ctx, payloads[idx])
				atomic.AddInt64(&completed, 1)
			}
		}()
	}

	wg.Wait()
	close(done)
}

// roundTrip encrypts plaintext, decrypts the result and checks that the
// plaintext comes back.
func (b *bench) roundTrip(ctx context.Context, plaintext []byte) {
	start := time.Now()
	ciphertext, err := b.pass(ctx, "encrypt", plaintext)
	if err != nil {
		b.stats.RecordError()
		return
	}
	decrypted, err := b.pass(ctx, "decrypt", ciphertext)
	if err != nil {
		b.stats.RecordError()
		return
	}
	b.stats.RecordRoundTrip(len(plaintext)+len(ciphertext), len(ciphertext)+len(decrypted), time.Since(start))
	if !bytes.Equal(plaintext, decrypted) {
		b.stats.RecordMismatch()
	}
}

// pass writes data through one channel and reads the transform back.
func (b *bench) pass(ctx context.Context, channel string, data []byte) ([]byte, error) {
	h, err := b.open(ctx, channel)
	if err != nil {
		return nil, err
	}
	defer h.Close(ctx)
	if _, err := h.Write(ctx, data); err != nil {
		return nil, err
	}
	return h.ReadAll(ctx, b.readChunk)
}

// open retries while the channel is held by another client.
func (b *bench) open(ctx context.Context, channel string) (*api.Handle, error) {
	for {
		h, err := b.client.Open(ctx, channel)
		if status.Code(err) != codes.Unavailable {
			return h, err
		}
		b.stats.RecordBusy()
		time.Sleep(b.backoff)
	}
}
