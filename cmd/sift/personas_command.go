package main

import (
	"errors"

	"github.com/spf13/cobra"

	"sift/internal/pipeline"
	"sift/internal/services"
)

func newPersonasCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "personas <transcript|->",
		Short: "Suggest participant personas from a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Analysis.PersonaEnabled {
				return &pipeline.Error{
					Kind:    pipeline.KindConfiguration,
					Message: "persona suggestions are disabled",
					Err:     errors.New("set analysis.persona_enabled = true to use this command"),
				}
			}
			raw, name, err := readTranscript(cmd, args[0])
			if err != nil {
				return err
			}
			_, opts, err := ctx.pipelineOptions(nil)
			if err != nil {
				return err
			}
			suggester, err := pipeline.NewPersonaSuggester(opts)
			if err != nil {
				return err
			}
			result, err := suggester.Suggest(services.WithSource(cmd.Context(), name), raw)
			if err != nil {
				return err
			}
			if outFormat == formatTable {
				out := cmd.OutOrStdout()
				renderPersonas(out, result, shouldColorize(out))
				return nil
			}
			return writeDocument(cmd, outFormat, result)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format: json, yaml or table")
	return cmd
}
