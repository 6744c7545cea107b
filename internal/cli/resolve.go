package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/clinia/flagx/featureflagx"
)

type resolution struct {
	Flag   string              `json:"flag"`
	Value  bool                `json:"value"`
	Source featureflagx.Source `json:"source"`
	Error  string              `json:"error,omitempty"`
}

func newResolution(r featureflagx.Resolution) resolution {
	out := resolution{Flag: r.Flag, Value: r.Value, Source: r.Source}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func targetFlags(cmd *cobra.Command) {
	cmd.Flags().String("target", "", "Identifier of the target to evaluate for.")
	cmd.Flags().StringToString("attribute", nil, "Target attributes, as key=value.")
}

// withTarget attaches the --target and --attribute flags, if any, to the
// command context.
func withTarget(cmd *cobra.Command, s *services) error {
	id, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	attrs, err := cmd.Flags().GetStringToString("attribute")
	if err != nil {
		return err
	}
	if id == "" && len(attrs) == 0 {
		return nil
	}

	t := s.config.FeatureFlags.Target
	if id != "" {
		t.Identifier = id
	}
	for k, v := range attrs {
		t = t.WithAttribute(k, v)
	}
	cmd.SetContext(featureflagx.WithTarget(cmd.Context(), t))
	return nil
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <flag>",
		Short: "Resolve a flag and print the value with its source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := cmd.Flags().GetBool("default")
			if err != nil {
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

			r := s.resolver.ResolveDetail(cmd.Context(), args[0], def)
			e := json.NewEncoder(cmd.OutOrStdout())
			e.SetIndent("", "  ")
			return e.Encode(newResolution(r))
		},
	}
	cmd.Flags().Bool("default", false, "Value used when neither the provider nor the local file knows the flag.")
	targetFlags(cmd)
	return cmd
}
