package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinia/flagx/featureflagx"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <flag>",
		Short: "Exit with status 1 unless the flag resolves to the expected value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := featureflagx.Enabled(args[0])
			var err error
			if spec.DefaultValue, err = cmd.Flags().GetBool("default"); err != nil {
				return err
			}
			if spec.ExpectedValue, err = cmd.Flags().GetBool("expect"); err != nil {
				return err
			}

			s, err := newServices(cmd)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())

			if err := withTarget(cmd, s); err != nil {
				return err
			}

			if err := s.gate.Check(cmd.Context(), spec); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "feature %q is enabled\n", spec.Name)
			return err
		},
	}
	cmd.Flags().Bool("default", false, "Value used when neither the provider nor the local file knows the flag.")
	cmd.Flags().Bool("expect", true, "Value the flag must resolve to.")
	targetFlags(cmd)
	return cmd
}
