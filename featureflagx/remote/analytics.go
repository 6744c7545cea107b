package remote

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinia/flagx/retryx"
	"github.com/clinia/flagx/tracex"
)

const finalFlushTimeout = 2 * time.Second

type analyticsKey struct {
	flag  string
	value bool
}

type analyticsEvent struct {
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
	Count int    `json:"count"`
}

type analyticsBatch struct {
	BatchID     string           `json:"batch_id"`
	SentAt      time.Time        `json:"sent_at"`
	Evaluations []analyticsEvent `json:"evaluations"`
}

// analytics counts evaluations and ships them in batches.
type analytics struct {
	mu     sync.Mutex
	counts map[analyticsKey]int
}

func newAnalytics() *analytics {
	return &analytics{counts: map[analyticsKey]int{}}
}

func (a *analytics) record(flag string, value bool) {
	a.mu.Lock()
	a.counts[analyticsKey{flag: flag, value: value}]++
	a.mu.Unlock()
}

func (a *analytics) drain() *analyticsBatch {
	a.mu.Lock()
	counts := a.counts
	a.counts = map[analyticsKey]int{}
	a.mu.Unlock()

	if len(counts) == 0 {
		return nil
	}

	b := &analyticsBatch{
		BatchID:     ksuid.New().String(),
		SentAt:      time.Now().UTC(),
		Evaluations: make([]analyticsEvent, 0, len(counts)),
	}
	for k, n := range counts {
		b.Evaluations = append(b.Evaluations, analyticsEvent{Flag: k.flag, Value: k.value, Count: n})
	}
	sort.Slice(b.Evaluations, func(i, j int) bool {
		if b.Evaluations[i].Flag != b.Evaluations[j].Flag {
			return b.Evaluations[i].Flag < b.Evaluations[j].Flag
		}
		return b.Evaluations[i].Value && !b.Evaluations[j].Value
	})
	return b
}

func (p *Provider) runAnalytics(ctx context.Context, wg *sync.WaitGroup, a *analytics, interval time.Duration) {
	defer wg.Done()
	defer tracex.RecoverWithStackTrace(ctx, p.logger, "panic in feature flag analytics loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalFlushTimeout)
			p.flush(fctx, a)
			cancel()
			return
		case <-ticker.C:
			p.flush(ctx, a)
		}
	}
}

// flush sends the pending batch. A batch that still fails after the retries
// is dropped.
func (p *Provider) flush(ctx context.Context, a *analytics) {
	b := a.drain()
	if b == nil {
		return
	}

	err := retryx.ExponentialRetry(func() error {
		res, err := p.client.MakeHTTPRequest(ctx, p.request(http.MethodPost, analyticsPath, b))
		if err != nil {
			return err
		}
		if err := statusError(res); err != nil {
			if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
				return retryx.Permanent(err)
			}
			return err
		}
		return nil
	}, retryx.WithContext(ctx), retryx.WithInterval(p.retryInterval), retryx.WithRetryCount(p.retryCount))
	if err != nil {
		p.logger.WithError(err).Warn(ctx, "dropping feature flag analytics batch",
			attribute.String("batch_id", b.BatchID),
			attribute.Int("evaluations", len(b.Evaluations)),
		)
		return
	}
	p.logger.Debug(ctx, "feature flag analytics batch sent", attribute.String("batch_id", b.BatchID))
}
