package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

var defaultBenchQueries = []string{
	"customer",
	"customer account",
	"ledger entry",
	"data sharing agreement",
	"retention policy",
	"finance domain",
	"reference currency",
	"terraform module",
	"glossary term",
	"invoice model",
}

// benchStats collects outcomes from concurrent workers.
type benchStats struct {
	total   atomic.Int64
	success atomic.Int64
	errors  atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newBenchStats() *benchStats {
	return &benchStats{
		latencies: make([]time.Duration, 0, 10000),
		codes:     make(map[int]int64),
	}
}

func (s *benchStats) record(d time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[status]++
	s.mu.Unlock()
}

func newBenchCmd(opts *options) *cobra.Command {
	var (
		concurrency int
		duration    time.Duration
		queries     []string
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load-test the search endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fmt.Errorf("concurrency must be at least 1")
			}
			if len(queries) == 0 {
				queries = defaultBenchQueries
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "target %s, %d workers for %s, %d queries\n", opts.addr, concurrency, duration, len(queries))
			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()
			stats := runBench(ctx, opts, concurrency, queries, limit)
			printBenchReport(out, stats, duration)
			if stats.total.Load() == 0 {
				return fmt.Errorf("no requests completed; is the daemon running?")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "concurrent workers")
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "query to send (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "page size per query")
	return cmd
}

func runBench(ctx context.Context, opts *options, concurrency int, queries []string, limit int) *benchStats {
	stats := newBenchStats()
	hc := &http.Client{
		Timeout: opts.timeout,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	base := newClient(opts.addr, opts.timeout).base

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				q := url.Values{"q": {queries[next%len(queries)]}, "limit": {strconv.Itoa(limit)}}
				next++
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/search?"+q.Encode(), nil)
				if err != nil {
					stats.record(0, 0, err)
					return
				}
				start := time.Now()
				resp, err := hc.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.record(elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func printBenchReport(w io.Writer, stats *benchStats, duration time.Duration) {
	total := stats.total.Load()
	errs := stats.errors.Load()
	fmt.Fprintf(w, "requests:   %d\n", total)
	fmt.Fprintf(w, "successful: %d\n", stats.success.Load())
	fmt.Fprintf(w, "errors:     %d\n", errs)
	if total > 0 {
		fmt.Fprintf(w, "error rate: %.2f%%\n", float64(errs)/float64(total)*100)
		fmt.Fprintf(w, "req/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	codes := make([]int, 0, len(stats.codes))
	for c := range stats.codes {
		codes = append(codes, c)
	}
	counts := make(map[int]int64, len(stats.codes))
	for c, n := range stats.codes {
		counts[c] = n
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sq float64
		for _, l := range latencies {
			d := float64(l - avg)
			sq += d * d
		}
		fmt.Fprintf(w, "latency min %s avg %s p50 %s p90 %s p99 %s max %s stddev %s\n",
			latencies[0], avg,
			percentile(latencies, 50), percentile(latencies, 90), percentile(latencies, 99),
			latencies[len(latencies)-1],
			time.Duration(math.Sqrt(sq/float64(len(latencies)))),
		)
	}
	slices.Sort(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "  %d: %d\n", c, counts[c])
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
