package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/handler"
)

var defaultLoadQueries = []string{
	"install",
	"getting started",
	"configuration",
	"search index",
	"command line",
	"error handling",
	"release notes",
	"build",
}

type loadOptions struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	rps         float64
	limit       int
	queriesFile string
	queries     []string
}

// loadReport is the outcome of one load test run.
type loadReport struct {
	Requests    int64          `json:"requests"`
	Succeeded   int64          `json:"succeeded"`
	Failed      int64          `json:"failed"`
	CacheHits   int64          `json:"cache_hits"`
	RPS         float64        `json:"rps"`
	MinMs       float64        `json:"min_ms"`
	AvgMs       float64        `json:"avg_ms"`
	P50Ms       float64        `json:"p50_ms"`
	P90Ms       float64        `json:"p90_ms"`
	P95Ms       float64        `json:"p95_ms"`
	P99Ms       float64        `json:"p99_ms"`
	MaxMs       float64        `json:"max_ms"`
	StatusCodes map[string]int `json:"status_codes"`
}

type loadRecorder struct {
	mu        sync.Mutex
	failed    int64
	cacheHits int64
	latencies []time.Duration
	statuses  map[int]int
}

func (r *loadRecorder) record(d time.Duration, status int, cacheHit bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		r.statuses[0]++
		return
	}
	r.statuses[status]++
	if status < 200 || status >= 300 {
		r.failed++
		return
	}
	if cacheHit {
		r.cacheHits++
	}
	r.latencies = append(r.latencies, d)
}

func (r *loadRecorder) report(elapsed time.Duration) loadReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := loadReport{
		Succeeded:   int64(len(r.latencies)),
		Failed:      r.failed,
		CacheHits:   r.cacheHits,
		StatusCodes: make(map[string]int, len(r.statuses)),
	}
	rep.Requests = rep.Succeeded + rep.Failed
	if elapsed > 0 {
		rep.RPS = float64(rep.Requests) / elapsed.Seconds()
	}
	for code, n := range r.statuses {
		key := fmt.Sprint(code)
		if code == 0 {
			key = "transport_error"
		}
		rep.StatusCodes[key] = n
	}
	if len(r.latencies) == 0 {
		return rep
	}

	sorted := slices.Clone(r.latencies)
	slices.Sort(sorted)
	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	rep.MinMs = ms(sorted[0])
	rep.AvgMs = ms(sum / time.Duration(len(sorted)))
	rep.P50Ms = ms(percentile(sorted, 50))
	rep.P90Ms = ms(percentile(sorted, 90))
	rep.P95Ms = ms(percentile(sorted, 95))
	rep.P99Ms = ms(percentile(sorted, 99))
	rep.MaxMs = ms(sorted[len(sorted)-1])
	return rep
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}

func newLoadTestCmd(global *globalOptions) *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send concurrent queries to a running search service",
		Long: `Send concurrent search queries to a running search service and report
throughput, latency percentiles and cache hits.

Queries come from --query (repeatable), --queries-file (one per line) or a
built-in list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.concurrency <= 0 {
				return fmt.Errorf("concurrency must be positive, got %d", opts.concurrency)
			}
			if opts.queriesFile != "" {
				fromFile, err := readQueries(opts.queriesFile)
				if err != nil {
					return err
				}
				opts.queries = append(opts.queries, fromFile...)
			}
			if len(opts.queries) == 0 {
				opts.queries = defaultLoadQueries
			}

			rep, err := runLoadTest(cmd.Context(), http.DefaultTransport, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if resolveFormat(global.format, out) == formatJSON {
				if err := writeJSON(out, rep); err != nil {
					return err
				}
			} else {
				printLoadReport(out, opts, rep)
			}
			if rep.Requests == 0 {
				return errors.New("no requests completed; is the search service running?")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the search service")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 10, "Number of concurrent workers")
	cmd.Flags().DurationVar(&opts.duration, "duration", 30*time.Second, "Test duration")
	cmd.Flags().Float64Var(&opts.rps, "rps", 0, "Overall request rate limit (0 for unlimited)")
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "Results requested per query")
	cmd.Flags().StringVar(&opts.queriesFile, "queries-file", "", "File with one query per line")
	cmd.Flags().StringArrayVarP(&opts.queries, "query", "q", nil, "Query to send (repeatable)")
	return cmd
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries file: %w", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if q := strings.TrimSpace(scanner.Text()); q != "" && !strings.HasPrefix(q, "#") {
			queries = append(queries, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading queries file: %w", err)
	}
	return queries, nil
}

func runLoadTest(ctx context.Context, transport http.RoundTripper, opts loadOptions) (loadReport, error) {
	base, err := url.Parse(opts.baseURL)
	if err != nil {
		return loadReport{}, fmt.Errorf("parsing url: %w", err)
	}
	client := &http.Client{Timeout: 10 * time.Second, Transport: transport}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.rps), max(1, opts.concurrency))
	}

	rec := &loadRecorder{statuses: make(map[int]int)}
	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := range opts.concurrency {
		g.Go(func() error {
			for i := w; ; i++ {
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
				target := *base
				target.Path = strings.TrimSuffix(base.Path, "/") + "/api/v1/search"
				target.RawQuery = url.Values{
					"q":     {opts.queries[i%len(opts.queries)]},
					"limit": {fmt.Sprint(opts.limit)},
				}.Encode()

				req, err := http.NewRequestWithContext(gctx, http.MethodGet, target.String(), nil)
				if err != nil {
					return err
				}
				sent := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					rec.record(0, 0, false, err)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				rec.record(time.Since(sent), resp.StatusCode, resp.Header.Get(handler.CacheHeader) == "HIT", nil)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return loadReport{}, err
	}
	return rec.report(time.Since(start)), nil
}

func printLoadReport(w io.Writer, opts loadOptions, rep loadReport) {
	fmt.Fprintf(w, "Target:       %s\n", opts.baseURL)
	fmt.Fprintf(w, "Concurrency:  %d\n", opts.concurrency)
	fmt.Fprintf(w, "Duration:     %s\n", opts.duration)
	fmt.Fprintf(w, "Queries:      %d unique\n\n", len(opts.queries))

	fmt.Fprintf(w, "Requests:     %d (%.1f/s)\n", rep.Requests, rep.RPS)
	fmt.Fprintf(w, "Succeeded:    %d\n", rep.Succeeded)
	fmt.Fprintf(w, "Failed:       %d\n", rep.Failed)
	fmt.Fprintf(w, "Cache hits:   %d\n\n", rep.CacheHits)

	if rep.Succeeded > 0 {
		fmt.Fprintf(w, "Latency (ms)  min %.2f  avg %.2f  p50 %.2f  p90 %.2f  p95 %.2f  p99 %.2f  max %.2f\n\n",
			rep.MinMs, rep.AvgMs, rep.P50Ms, rep.P90Ms, rep.P95Ms, rep.P99Ms, rep.MaxMs)
	}

	codes := make([]string, 0, len(rep.StatusCodes))
	for code := range rep.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %s: %d\n", code, rep.StatusCodes[code])
	}
}
