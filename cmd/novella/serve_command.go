package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"novella/internal/loader"
	"novella/internal/logging"
	"novella/internal/saves"
	"novella/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve playback sessions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind := strings.TrimSpace(bindFlag); bind != "" {
				cfg.Server.Bind = bind
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			backend, err := saves.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("open saves: %w", err)
			}
			defer func() { _ = backend.Close() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg, loader.New(cfg, logger), backend, logger)
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())
			if cfg.Server.Token != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "API requests require a bearer token")
			}

			<-runCtx.Done()
			srv.Stop()
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&bindFlag, "bind", "", "Listen address (overrides server.bind)")
	return cmd
}
