// Package cli implements the flagx command line: flag resolution, gate checks
// and the HTTP sidecar.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/clinia/flagx/featureflagx"
)

const (
	ExitNotEnabled = 1
	ExitFailure    = 2
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flagx",
		Short:         "Resolve boolean feature flags with a local fallback",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringSliceP("config", "c", nil, "Configuration files (yaml or json), later files win.")
	pf.String("log.level", "", "Log level: debug, info, warn or error.")
	pf.String("log.format", "", "Log format: json or text.")
	pf.String("feature_flags.provider", "", "Flag provider: inmemory, launchdarkly or remote.")
	pf.String("feature_flags.local.path", "", "Path of the local flags properties file.")

	root.AddCommand(
		newResolveCmd(),
		newCheckCmd(),
		newConfigCmd(),
		newServeCmd(),
	)
	return root
}

// ExitCode maps a command error onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case featureflagx.IsFeatureNotEnabledError(err):
		return ExitNotEnabled
	default:
		return ExitFailure
	}
}
