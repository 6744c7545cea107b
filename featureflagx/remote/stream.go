package remote

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	es "github.com/launchdarkly/eventsource"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinia/flagx/tracex"
)

const (
	streamReadTimeout   = 5 * time.Minute
	streamInitialRetry  = time.Second
	streamMaxRetryDelay = 30 * time.Second

	eventFlagsChanged = "flags-changed"
)

// runStream keeps a subscription to the change stream and invalidates the
// cache on every change notification. Without keys the whole cache goes.
func (p *Provider) runStream(ctx context.Context, wg *sync.WaitGroup, c *cache) {
	defer wg.Done()
	defer tracex.RecoverWithStackTrace(ctx, p.logger, "panic in feature flag change stream")

	sr := p.request(http.MethodGet, streamPath, nil)
	req, err := http.NewRequestWithContext(ctx, sr.Method, sr.URL, nil)
	if err != nil {
		p.logger.WithError(err).Error(ctx, "could not build the feature flag stream request")
		return
	}
	req.Header = sr.Headers
	req.Header.Set("Accept", "text/event-stream")

	errorHandler := func(err error) es.StreamErrorHandlerResult {
		if ctx.Err() != nil {
			return es.StreamErrorHandlerResult{CloseNow: true}
		}
		if se, ok := err.(es.SubscriptionError); ok && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
			p.logger.Error(ctx, "feature flag stream rejected the api key", attribute.Int("status", se.Code))
			return es.StreamErrorHandlerResult{CloseNow: true}
		}
		p.logger.WithError(err).Warn(ctx, "feature flag stream error, reconnecting")
		return es.StreamErrorHandlerResult{CloseNow: false}
	}

	stream, err := es.SubscribeWithRequestAndOptions(req,
		es.StreamOptionHTTPClient(p.streamClient.HTTPClient()),
		es.StreamOptionReadTimeout(streamReadTimeout),
		es.StreamOptionInitialRetry(streamInitialRetry),
		es.StreamOptionUseBackoff(streamMaxRetryDelay),
		es.StreamOptionErrorHandler(errorHandler),
		es.StreamOptionCanRetryFirstConnection(-1),
		es.StreamOptionLogger(p.logger.AtLevel(slog.LevelDebug)),
	)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.WithError(err).Error(ctx, "feature flag stream closed")
		}
		return
	}
	// Close does not wait for the stream goroutines. Draining Events here can
	// deadlock against the library discarding a broken connection.
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream.Events:
			if !ok {
				return
			}
			if event.Event() != eventFlagsChanged {
				continue
			}
			var keys []string
			for _, k := range gjson.Get(event.Data(), "keys").Array() {
				keys = append(keys, k.String())
			}
			c.invalidate(keys...)
			p.logger.Debug(ctx, "feature flags changed remotely", attribute.StringSlice("keys", keys))
		}
	}
}
