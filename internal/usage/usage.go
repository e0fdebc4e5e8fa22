// Package usage surfaces remote usage snapshots and keeps a best-effort
// local tally of streamed output, since streamed responses carry no
// authoritative token counts.
package usage

import (
	"context"
	"sync"

	"github.com/waddleai/waddle-go/internal/api"
)

// Snapshot is read-only and refreshed on demand; it is never cached beyond
// the current display.
type Snapshot = api.Usage

// DefaultPeriodDays is the default lookback window for snapshots.
const DefaultPeriodDays = 30

// Fetcher retrieves a snapshot from the remote. *client.Client satisfies it.
type Fetcher interface {
	Usage(ctx context.Context, days int) (api.Usage, error)
}

// Fetch returns the usage snapshot for the lookback window.
func Fetch(ctx context.Context, f Fetcher, days int) (Snapshot, error) {
	if days <= 0 {
		days = DefaultPeriodDays
	}
	return f.Usage(ctx, days)
}

// EstimateTokens approximates the token count of streamed text at four
// characters per token.
func EstimateTokens(text string) int64 {
	return int64(len(text)) / 4
}

// Recorder accumulates per-process estimated output tokens and request
// counts for local display.
type Recorder struct {
	mu       sync.Mutex
	tokens   int64
	requests int64
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record adds one completed turn's estimated output tokens.
func (r *Recorder) Record(estimatedTokens int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens += estimatedTokens
	r.requests++
}

// Totals returns the accumulated estimate and request count.
func (r *Recorder) Totals() (tokens, requests int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens, r.requests
}
