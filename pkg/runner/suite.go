package runner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hornet-api/hornet/pkg/collection"
	"golang.org/x/time/rate"
)

// SuiteOptions controls a folder run.
type SuiteOptions struct {
	// RequestsPerSecond throttles the run. Zero means no throttle.
	RequestsPerSecond int
	// StopOnError aborts the run at the first failed request.
	StopOnError bool
}

// SuiteOutcome is the result of one request in a folder run.
type SuiteOutcome struct {
	Path     string // slash-joined names below the folder
	Response *collection.Response
	Err      error
}

// SuiteResult aggregates a folder run.
type SuiteResult struct {
	Outcomes []SuiteOutcome
	Duration time.Duration

	LatencyP50 time.Duration
	LatencyP95 time.Duration
	LatencyP99 time.Duration
	MinLatency time.Duration
	MaxLatency time.Duration
}

// Failed reports how many requests errored or returned a 4xx/5xx.
func (r *SuiteResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil || o.Response.StatusCode >= 400 {
			n++
		}
	}
	return n
}

// RunDirectory executes every request under a directory node in display
// order, honoring the rate limit. The request list is snapshotted under
// the store lock up front, so the run never races edits made while it is
// in flight. Responses are attached to the store as they arrive so the
// UI can show per-request results; attaching never dirties the
// collection.
func (r *Runner) RunDirectory(ctx context.Context, st *collection.Store, dirID collection.NodeID, opts SuiteOptions) (*SuiteResult, error) {
	items, err := st.SnapshotRequests(dirID)
	if err != nil {
		return nil, fmt.Errorf("run folder: %w", err)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	result := &SuiteResult{}
	var latencies []time.Duration
	start := time.Now()

	for _, it := range items {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		resp, err := r.Execute(ctx, it.Def)
		result.Outcomes = append(result.Outcomes, SuiteOutcome{Path: it.Path, Response: resp, Err: err})
		if err == nil {
			latencies = append(latencies, resp.Duration)
			// The node may have been deleted mid-run; that is fine.
			_ = st.AttachResponse(it.ID, resp)
		} else if opts.StopOnError {
			break
		}
	}
	result.Duration = time.Since(start)

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		result.MinLatency = latencies[0]
		result.MaxLatency = latencies[len(latencies)-1]
		result.LatencyP50 = latencies[percentileIndex(len(latencies), 50)]
		result.LatencyP95 = latencies[percentileIndex(len(latencies), 95)]
		result.LatencyP99 = latencies[percentileIndex(len(latencies), 99)]
	}
	return result, nil
}

func percentileIndex(n, percentile int) int {
	if n == 0 {
		return 0
	}
	i := int(math.Ceil(float64(n)*float64(percentile)/100.0)) - 1
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}
