package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sandbox-app-service/logging"
	"sandbox-app-service/sandboxagent"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	var (
		addr          string
		componentPath string
		logLevel      string
	)

	root := &cobra.Command{
		Use:          "sandbox-agent",
		Short:        "Control endpoint running inside a sandbox: component pushes and heartbeats",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(logLevel, false, os.Stderr)
			gin.SetMode(gin.ReleaseMode)

			srv := &http.Server{
				Addr:    addr,
				Handler: sandboxagent.NewServer(componentPath).Router(),
			}

			errCh := make(chan error, 1)
			go func() {
				logging.Info("sandbox agent listening", "addr", addr, "component_path", componentPath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-sigChan:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8000", "Listen address")
	root.Flags().StringVar(&componentPath, "component-path", "/root/vite-app/src/LLMComponent.tsx", "File the pushed component is written to")
	root.Flags().StringVar(&logLevel, "log-level", "info", "Log level")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
