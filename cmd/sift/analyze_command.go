package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sift/internal/config"
	"sift/internal/pipeline"
	"sift/internal/services"
	"sift/internal/store"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var format string
	var noStore bool
	var projectID string
	var userID string
	var source string

	cmd := &cobra.Command{
		Use:   "analyze <transcript|->",
		Short: "Analyse an interview transcript into problem areas",
		Long: "Analyse a WebVTT transcript into problem areas with supporting excerpts and a synthesis.\n" +
			"Pass - to read the transcript from stdin. Results are stored unless --no-store is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			raw, name, err := readTranscript(cmd, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(source) != "" {
				name = strings.TrimSpace(source)
			}

			var st *store.Store
			var persister pipeline.Persister
			if !noStore {
				st, err = ctx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				persister = st
			}

			_, opts, err := ctx.pipelineOptions(persister)
			if err != nil {
				return err
			}
			analyzer, err := pipeline.NewAnalyzer(opts)
			if err != nil {
				return err
			}

			runCtx := services.WithSource(cmd.Context(), name)
			out := cmd.OutOrStdout()
			if noStore {
				result, err := analyzer.Analyze(runCtx, raw)
				if err != nil {
					return err
				}
				if outFormat == formatTable {
					renderResult(out, result, shouldColorize(out))
					return nil
				}
				return writeDocument(cmd, outFormat, result)
			}

			record, result, err := analyzer.AnalyzeAndStore(runCtx, raw, store.Metadata{
				ProjectID:  strings.TrimSpace(projectID),
				UserID:     strings.TrimSpace(userID),
				SourceName: name,
			})
			if err != nil {
				return err
			}
			if outFormat == formatTable {
				renderResult(out, result, shouldColorize(out))
				fmt.Fprintf(out, "\nStored as %s\n", record.ID)
				return nil
			}
			return writeDocument(cmd, outFormat, storedResponse(record, result))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format: json, yaml or table")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not persist the result")
	cmd.Flags().StringVar(&projectID, "project", "", "Project id stored with the result")
	cmd.Flags().StringVar(&userID, "user", "", "User id stored with the result")
	cmd.Flags().StringVar(&source, "source", "", "Source name stored with the result (defaults to the file name)")
	return cmd
}

// readTranscript loads a transcript from path, or from stdin when path is "-".
func readTranscript(cmd *cobra.Command, path string) (string, string, error) {
	path = strings.TrimSpace(path)
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", "", fmt.Errorf("resolve transcript path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), filepath.Base(expanded), nil
}
