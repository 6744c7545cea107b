package cli

import (
	"context"
	_ "embed"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/clinia/flagx/configx"
	"github.com/clinia/flagx/featureflagx"
	"github.com/clinia/flagx/loggerx"
	"github.com/clinia/flagx/otelx"
)

const (
	EnvPrefix   = "FLAGX_"
	serviceName = "flagx"

	redacted = "********"

	// stdinConfig as a --config value reads a document from stdin.
	stdinConfig = "-"
)

//go:embed config.schema.json
var ConfigSchema string

type (
	Config struct {
		Log          loggerx.Config      `json:"log"`
		FeatureFlags featureflagx.Config `json:"feature_flags"`
		Tracing      otelx.TracerConfig  `json:"tracing"`
		Metrics      otelx.MeterConfig   `json:"metrics"`
		Serve        ServeConfig         `json:"serve"`
	}

	ServeConfig struct {
		Address         string        `json:"address"`
		ShutdownTimeout time.Duration `json:"shutdown_timeout"`
		CORS            CORSConfig    `json:"cors"`
	}

	CORSConfig struct {
		Enabled        bool     `json:"enabled"`
		AllowedOrigins []string `json:"allowed_origins"`
	}
)

func schemaResources() map[string]string {
	r := featureflagx.SchemaResources()
	r[otelx.TracerConfigSchemaID] = otelx.TracerConfigSchema
	r[otelx.MeterConfigSchemaID] = otelx.MeterConfigSchema
	return r
}

// loadConfig layers schema defaults, the --config files (- for stdin), FLAGX_ variables and
// the command flags. Options stored in the command context come last.
func loadConfig(cmd *cobra.Command) (*configx.Provider, *Config, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	files, err := cmd.Flags().GetStringSlice("config")
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	opts := []configx.OptionModifier{
		configx.WithSchemaResources(schemaResources()),
		configx.WithEnvPrefix(EnvPrefix),
	}
	for _, f := range files {
		if f != stdinConfig {
			opts = append(opts, configx.WithConfigFiles(f))
			continue
		}
		doc, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to read the configuration from stdin")
		}
		opts = append(opts, configx.WithConfigDocument("stdin", doc))
	}

	p, err := configx.New(ctx, []byte(ConfigSchema), append(opts,
		configx.WithFlags(cmd.Flags()),
		configx.WithStandardValidationReporter(cmd.ErrOrStderr()),
		configx.WithContext(ctx),
	)...)
	if err != nil {
		return nil, nil, err
	}

	c := &Config{}
	if err := p.Unmarshal("", c); err != nil {
		return nil, nil, err
	}
	c.Tracing.SetDefaultNames(serviceName)
	c.Metrics.SetDefaultNames(serviceName)
	return p, c, nil
}

// effectiveConfig returns the merged document with secrets hidden.
func effectiveConfig(p *configx.Provider) (map[string]interface{}, error) {
	k := p.Koanf.Copy()
	if k.String("feature_flags.api_key") != "" {
		if err := k.Set("feature_flags.api_key", redacted); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return k.Raw(), nil
}
