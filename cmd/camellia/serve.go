package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/camellia/internal/repositories/business"
	"github.com/Ramsey-B/camellia/pkg/routes"
	"github.com/Ramsey-B/camellia/pkg/routes/health"
)

var version = "dev"

func (c *cli) serveCommand() *cobra.Command {
	var taxonomyFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API: health probes, metrics, category and cluster lookups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			ctx := cmd.Context()

			if err := a.connect(ctx, true); err != nil {
				return &exitError{code: exitFatal, err: err}
			}
			resolver, err := a.resolver(ctx, taxonomyFile)
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}

			checker := health.NewChecker(version)
			checker.AddCheck("database", a.db().PingContext)
			if client := a.redisClient(); client != nil {
				checker.AddCheck("redis", client.Ping)
			}

			e := routes.NewServer(routes.ServerConfig{
				ServiceName: a.cfg.AppName,
				Logger:      a.logger,
				Health:      checker,
				Resolver:    resolver,
				Businesses:  business.NewRepository(a.db(), a.logger),
			})

			errs := make(chan error, 1)
			go func() {
				addr := fmt.Sprintf(":%d", a.cfg.Port)
				a.logger.WithContext(ctx).WithField("addr", addr).Info("Admin API listening")
				errs <- e.Start(addr)
			}()
			checker.SetReady(true)

			select {
			case err := <-errs:
				if !errors.Is(err, http.ErrServerClosed) {
					return &exitError{code: exitFatal, err: err}
				}
				return nil
			case <-ctx.Done():
			}

			checker.SetReady(false)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return &exitError{code: exitFatal, err: err}
			}
			a.logger.Info("Admin API stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&taxonomyFile, "taxonomy-file", "", "read the taxonomy from a YAML file instead of the store")
	return cmd
}
