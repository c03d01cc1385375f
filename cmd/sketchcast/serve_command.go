package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ivlev/sketchcast/internal/api"
	"github.com/ivlev/sketchcast/internal/logger"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [scene.json]",
		Short: "Serve rendered frames and playback sessions over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenePath, sc, err := ctx.loadScene(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			gin.SetMode(gin.ReleaseMode)
			handler := api.NewHandler(sc, api.Options{
				Width:       cfg.Canvas.Width,
				MaxWidth:    cfg.Server.MaxWidth,
				Background:  cfg.Background(),
				MaxSessions: cfg.Server.MaxSessions,
				SessionTTL:  cfg.Server.SessionTTL,
			})
			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.NewRouter(handler),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.WithField("addr", cfg.Server.Addr).Infof("serving %s", scenePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "[*] Listening on %s\n", cfg.Server.Addr)

			select {
			case err, ok := <-errCh:
				if ok {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Infof("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}
