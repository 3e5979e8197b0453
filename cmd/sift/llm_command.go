package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sift/internal/pipeline"
)

func newLLMCommand(ctx *commandContext) *cobra.Command {
	llmCmd := &cobra.Command{
		Use:   "llm",
		Short: "Model provider utilities",
	}
	llmCmd.AddCommand(newLLMHealthCommand(ctx))
	return llmCmd
}

func newLLMHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the configured model provider answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			model, err := ctx.newModel(cfg)
			if err != nil {
				return err
			}

			checkCtx, cancel := context.WithTimeout(cmd.Context(), cfg.CallTimeout())
			defer cancel()
			started := time.Now()
			err = model.HealthCheck(checkCtx)

			out := cmd.OutOrStdout()
			color := shouldColorize(out)
			label := fmt.Sprintf("%s (%s)", model.Name(), model.Model())
			if err != nil {
				fmt.Fprintf(out, "  %-40s %s\n", label, colorize(color, ansiRed, "[ERROR] "+err.Error()))
				return &pipeline.Error{Kind: pipeline.KindOf(err), Message: "health check failed", Err: err}
			}
			fmt.Fprintf(out, "  %-40s %s\n", label, colorize(color, ansiGreen, fmt.Sprintf("[OK] %s", time.Since(started).Round(time.Millisecond))))
			return nil
		},
	}
}
