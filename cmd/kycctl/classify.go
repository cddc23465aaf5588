package main

import (
	"github.com/spf13/cobra"

	"kycgate/internal/verification"
)

type classifyResult struct {
	Shape string `json:"shape"`
	verification.Outcome
}

func classifyCmd() *cobra.Command {
	var (
		file   string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a provider response envelope",
		Long: `Classify runs the verification outcome rules over a saved provider
response and prints the verdict.

Examples:
  kycctl classify --file response.json
  curl -s $PROVIDER/v1/verify/pan -d @req.json | kycctl classify --file - --strict`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var opts []verification.ClassifierOption
			if strict {
				opts = append(opts, verification.WithStrict())
			}
			env := verification.DecodeEnvelope(raw)
			out := verification.NewClassifier(opts...).Classify(env)
			out.RawEnvelope = nil
			return writeJSON(cmd, classifyResult{Shape: env.Shape.String(), Outcome: out})
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "envelope JSON file (- for stdin)")
	cmd.Flags().BoolVar(&strict, "strict", false, "report unrecognized payloads as inconclusive")
	return cmd
}
