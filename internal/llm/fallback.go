package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"docanalyser/internal/port"
)

// backoff records until when a provider that answered 429 is left alone.
type backoff struct {
	mu    sync.RWMutex
	until time.Time
}

func (b *backoff) activeUntil(now time.Time) (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.until, now.Before(b.until)
}

func (b *backoff) hold(until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if until.After(b.until) {
		b.until = until
	}
}

// provider pairs a completer with its configured name and backoff window.
type provider struct {
	name string
	port.ChatCompleter
	backoff backoff
}

// FallbackCompleter routes a request to the first provider that is not
// backing off. Only rate limits move the request on to the next provider;
// any other failure is returned to the caller as the provider reported it.
type FallbackCompleter struct {
	providers []*provider
	logger    *slog.Logger
	now       func() time.Time
}

// NewFallbackCompleter builds a chain from completers, in priority order,
// and their names.
func NewFallbackCompleter(completers []port.ChatCompleter, names []string) *FallbackCompleter {
	providers := make([]*provider, len(completers))
	for i, c := range completers {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		providers[i] = &provider{name: name, ChatCompleter: c}
	}
	return &FallbackCompleter{
		providers: providers,
		logger:    slog.Default().With("component", "llm.FallbackCompleter"),
		now:       time.Now,
	}
}

// Model reports the primary provider's model.
func (f *FallbackCompleter) Model() string {
	if len(f.providers) == 0 {
		return ""
	}
	return f.providers[0].Model()
}

func (f *FallbackCompleter) CompleteJSON(ctx context.Context, req port.ChatRequest) (string, error) {
	now := f.now()
	var soonest time.Time

	for _, p := range f.providers {
		if until, waiting := p.backoff.activeUntil(now); waiting {
			f.logger.DebugContext(ctx, "provider backing off", "provider", p.name, "until", until.Format(time.RFC3339))
			soonest = earlier(soonest, until)
			continue
		}

		out, err := p.CompleteJSON(ctx, req)
		if err == nil {
			return out, nil
		}

		var rlErr *RateLimitError
		if !errors.As(err, &rlErr) || ctx.Err() != nil {
			return "", err
		}

		until := now.Add(rlErr.RetryAfter)
		p.backoff.hold(until)
		soonest = earlier(soonest, until)
		f.logger.WarnContext(ctx, "provider rate limited, trying next",
			"provider", p.name, "retry_after", rlErr.RetryAfter)
	}

	wait := soonest.Sub(f.now())
	if wait < time.Second {
		wait = time.Second
	}
	return "", NewRateLimitError("all", errors.New("every provider is rate limited"), int(wait.Seconds()))
}

func earlier(a, b time.Time) time.Time {
	if a.IsZero() || b.Before(a) {
		return b
	}
	return a
}
