package main

import (
	"context"
	"fmt"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/taskly/taskly-api/internal/database"
	"github.com/taskly/taskly-api/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		gin.SetMode(cfg.GinMode)

		db, err := database.Connect(cfg)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			_ = database.Close(db)
			return err
		}

		svc := server.NewServices(cfg, db)
		if !svc.Suggestions.Configured() {
			logger.Warn("AI_API_KEY not set, task suggestions are disabled")
		}

		srv := server.New(cfg, server.NewRouter(cfg, svc, logger))

		go func() {
			logger.Info("server starting", "addr", srv.Addr())
			if err := srv.Start(); err != nil {
				logger.Error("server error", "error", err)
				os.Exit(1)
			}
		}()

		// One operation: the pool must outlive in-flight requests.
		wait := gfshutdown.GracefulShutdown(
			context.Background(),
			cfg.ShutdownTimeout,
			map[string]gfshutdown.Operation{
				"http-server": func(ctx context.Context) error {
					logger.Info("shutting down http server")
					if err := srv.Shutdown(ctx); err != nil {
						return err
					}
					logger.Info("closing database pool")
					return database.Close(db)
				},
			},
		)

		exitCode := <-wait
		logger.Info("server exited", "code", exitCode)
		if exitCode != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", exitCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
