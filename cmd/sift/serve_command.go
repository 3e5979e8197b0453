package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sift/internal/api"
	"sift/internal/inbox"
	"sift/internal/logging"
	"sift/internal/pipeline"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			cfg, opts, err := ctx.pipelineOptions(st)
			if err != nil {
				return err
			}
			analyzer, err := pipeline.NewAnalyzer(opts)
			if err != nil {
				return err
			}

			address := strings.TrimSpace(bind)
			if address == "" {
				address = cfg.Paths.APIBind
			}
			server := api.NewServer(api.Options{
				Analyzer: analyzer,
				Store:    st,
				Breakers: opts.Breakers,
				Logger:   opts.Logger,
			})
			return server.Serve(signalCtx, address)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to paths.api_bind)")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Analyse transcripts dropped into the inbox directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			cfg, opts, err := ctx.pipelineOptions(st)
			if err != nil {
				return err
			}
			analyzer, err := pipeline.NewAnalyzer(opts)
			if err != nil {
				return err
			}
			watcher, err := inbox.New(inbox.Options{
				Dir:           cfg.Paths.InboxDir,
				LockPath:      cfg.LockPath(),
				Analyzer:      analyzer,
				Logger:        opts.Logger,
				MaxConcurrent: concurrency,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", watcher.Dir())
			err = watcher.Run(signalCtx)
			if errors.Is(err, inbox.ErrAlreadyRunning) {
				logging.ErrorWithContext(opts.Logger, "watcher already running", "watch_locked",
					logging.String("lock_path", cfg.LockPath()),
					logging.String(logging.FieldErrorHint, "stop the other sift watch process first"),
				)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Maximum transcripts analysed at once")
	return cmd
}
