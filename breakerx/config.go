package breakerx

import (
	"bytes"
	_ "embed"
	"io"
	"time"

	"github.com/sony/gobreaker/v2"
)

type Granularity string

const (
	// GranularityShared trips one breaker for every key.
	GranularityShared Granularity = "shared"
	// GranularityPerFlag keeps one breaker per key.
	GranularityPerFlag Granularity = "per_flag"
)

const (
	DefaultConsecutiveFailures = 5
	DefaultFailureRatio        = 0.5
	DefaultMinRequests         = 20
	DefaultInterval            = 10 * time.Second
	DefaultCoolDown            = 5 * time.Second
	DefaultHalfOpenMaxRequests = 1
)

// Config is the breaker policy. Zero fields take their default. A negative
// ConsecutiveFailures or FailureRatio disables that trip rule.
type Config struct {
	// ConsecutiveFailures trips the breaker after that many failures in a row.
	ConsecutiveFailures int `json:"consecutive_failures"`
	// FailureRatio trips the breaker once at least MinRequests were seen in the
	// current Interval and this share of them failed.
	FailureRatio float64 `json:"failure_ratio"`
	MinRequests  uint32  `json:"min_requests"`
	// Interval is the rolling window after which the closed state counters reset.
	Interval time.Duration `json:"interval"`
	// CoolDown is how long the breaker stays open before letting a probe through.
	CoolDown            time.Duration `json:"cool_down"`
	HalfOpenMaxRequests uint32        `json:"half_open_max_requests"`
	Granularity         Granularity   `json:"granularity"`
}

func DefaultConfig() Config {
	return Config{
		ConsecutiveFailures: DefaultConsecutiveFailures,
		FailureRatio:        DefaultFailureRatio,
		MinRequests:         DefaultMinRequests,
		Interval:            DefaultInterval,
		CoolDown:            DefaultCoolDown,
		HalfOpenMaxRequests: DefaultHalfOpenMaxRequests,
		Granularity:         GranularityShared,
	}
}

// WithDefaults fills every zero field with its default. Negative trip rules are
// kept as is.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = d.ConsecutiveFailures
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = d.FailureRatio
	}
	if c.MinRequests == 0 {
		c.MinRequests = d.MinRequests
	}
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
	if c.CoolDown == 0 {
		c.CoolDown = d.CoolDown
	}
	if c.HalfOpenMaxRequests == 0 {
		c.HalfOpenMaxRequests = d.HalfOpenMaxRequests
	}
	if c.Granularity == "" {
		c.Granularity = d.Granularity
	}
	return c
}

// ReadyToTrip reports whether the closed breaker should open given its counters.
func (c Config) ReadyToTrip(counts gobreaker.Counts) bool {
	if c.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= uint32(c.ConsecutiveFailures) {
		return true
	}
	if c.FailureRatio <= 0 || counts.Requests < c.MinRequests || counts.Requests == 0 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

//go:embed config.schema.json
var ConfigSchema string

const ConfigSchemaID = "clinia://circuit-breaker-config"

// AddConfigSchema adds the circuit breaker schema to the compiler.
// The interface is specified instead of `jsonschema.Compiler` to allow the use of any jsonschema library fork or version.
func AddConfigSchema(c interface {
	AddResource(url string, r io.Reader) error
}) error {
	return c.AddResource(ConfigSchemaID, bytes.NewBufferString(ConfigSchema))
}
