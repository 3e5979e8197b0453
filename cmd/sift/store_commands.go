package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sift/internal/api"
	"sift/internal/store"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Display a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stored, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("analysis %s not found", args[0])
				}
				return err
			}
			if outFormat != formatTable {
				return writeDocument(cmd, outFormat, storedResponse(stored.Record, stored.Result))
			}

			out := cmd.OutOrStdout()
			color := shouldColorize(out)
			for _, line := range renderSectionHeader("Analysis "+stored.ID, color) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "  %-22s %s\n", "Created:", stored.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if stored.SourceName != "" {
				fmt.Fprintf(out, "  %-22s %s\n", "Source:", stored.SourceName)
			}
			if stored.ProjectID != "" {
				fmt.Fprintf(out, "  %-22s %s\n", "Project:", stored.ProjectID)
			}
			if stored.UserID != "" {
				fmt.Fprintf(out, "  %-22s %s\n", "User:", stored.UserID)
			}
			fmt.Fprintln(out)
			renderResult(out, stored.Result, color)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: json, yaml or table")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var format string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("limit must be positive")
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			summaries, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if outFormat == formatTable {
				renderSummaries(cmd.OutOrStdout(), summaries)
				return nil
			}
			return writeDocument(cmd, outFormat, api.ListResponse{Analyses: api.FromSummaries(summaries)})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: json, yaml or table")
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "Maximum number of analyses to list")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("analysis %s not found", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted analysis %s\n", args[0])
			return nil
		},
	}
}
