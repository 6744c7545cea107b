package cli

import (
	"github.com/spf13/cobra"

	"github.com/clinia/flagx/configx"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			doc, err := effectiveConfig(p)
			if err != nil {
				return err
			}
			out, err := configx.MarshalYAML(doc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
