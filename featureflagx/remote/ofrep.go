package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"github.com/clinia/flagx/errorx"
	"github.com/clinia/flagx/featureflagx"
	"github.com/clinia/flagx/httpx"
)

const (
	evaluatePath     = "/ofrep/v1/evaluate/flags"
	streamPath       = "/stream"
	analyticsPath    = "/analytics"
	errorFlagMissing = "FLAG_NOT_FOUND"
)

type evaluation struct {
	key   string
	value bool
	// found is false when the service does not know the flag.
	found bool
}

func evaluationContext(t featureflagx.Target) map[string]any {
	c := make(map[string]any, len(t.Attributes)+2)
	for k, v := range t.Attributes {
		c[k] = v
	}
	if t.Identifier != "" {
		c["targetingKey"] = t.Identifier
	}
	if t.Name != "" {
		c["name"] = t.Name
	}
	return map[string]any{"context": c}
}

// request builds a call to path on the flag service.
func (p *Provider) request(method, path string, body any) *httpx.Request {
	p.mu.RLock()
	base, key := p.baseURL, p.opts.APIKey
	p.mu.RUnlock()

	h := http.Header{}
	h.Set("Authorization", "Bearer "+key)
	h.Set("Accept", "application/json")
	return &httpx.Request{
		Method:  method,
		URL:     base + path,
		Body:    body,
		Headers: h,
	}
}

// evaluate asks the service for a single flag.
func (p *Provider) evaluate(ctx context.Context, flag string, t featureflagx.Target) (evaluation, error) {
	res, err := p.client.MakeHTTPRequest(ctx, p.request(http.MethodPost, evaluatePath+"/"+url.PathEscape(flag), evaluationContext(t)))
	if err != nil {
		if ctx.Err() != nil {
			return evaluation{}, ctx.Err()
		}
		return evaluation{}, errorx.UnavailableErrorf("could not reach the flag service: %s", err.Error()).WithOriginalError(err)
	}

	if res.StatusCode == http.StatusNotFound && gjson.GetBytes(res.Body, "errorCode").String() == errorFlagMissing {
		return evaluation{key: flag}, nil
	}
	if err := statusError(res); err != nil {
		return evaluation{}, err
	}

	return parseEvaluation(gjson.ParseBytes(res.Body))
}

// evaluateAll runs a bulk evaluation for the anonymous target.
func (p *Provider) evaluateAll(ctx context.Context) ([]evaluation, error) {
	res, err := p.client.MakeHTTPRequest(ctx, p.request(http.MethodPost, evaluatePath, evaluationContext(featureflagx.Target{})))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errorx.UnavailableErrorf("could not reach the flag service: %s", err.Error()).WithOriginalError(err)
	}
	if err := statusError(res); err != nil {
		return nil, err
	}

	var out []evaluation
	gjson.GetBytes(res.Body, "flags").ForEach(func(_, r gjson.Result) bool {
		// Flags of other types or with errors are skipped.
		if e, err := parseEvaluation(r); err == nil && e.found {
			out = append(out, e)
		}
		return true
	})
	return out, nil
}

func parseEvaluation(r gjson.Result) (evaluation, error) {
	e := evaluation{key: r.Get("key").String()}
	if code := r.Get("errorCode").String(); code != "" {
		if code == errorFlagMissing {
			return e, nil
		}
		return e, errorx.UnavailableErrorf("flag %q could not be evaluated: %s %s", e.key, code, r.Get("errorDetails").String())
	}

	v := r.Get("value")
	if !v.Exists() {
		return e, errorx.UnavailableErrorf("flag %q evaluation has no value", e.key)
	}
	switch v.Type {
	case gjson.True, gjson.False:
		e.value = v.Bool()
	default:
		b, err := cast.ToBoolE(v.Value())
		if err != nil {
			return e, errorx.InvalidArgumentErrorf("flag %q is not a boolean: %s", e.key, v.Raw)
		}
		e.value = b
	}
	e.found = true
	return e, nil
}

func statusError(res *httpx.Response) error {
	switch {
	case res.Success():
		return nil
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return errorx.UnavailableErrorf("flag service rejected the api key (status %d)", res.StatusCode)
	default:
		msg := gjson.GetBytes(res.Body, "errorDetails").String()
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return errorx.UnavailableErrorf("flag service answered %d: %s", res.StatusCode, msg)
	}
}
