package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sandbox-app-service/conf"
	"sandbox-app-service/controller"
	"sandbox-app-service/events"
	"sandbox-app-service/logging"
	"sandbox-app-service/service/sandbox_service"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	envFlag    string
	configFlag string
)

// @title           Sandbox App Service API
// @version         1.0
// @description     Create, edit and manage generated UI components running in remote sandboxes

// @host      localhost:7380
// @BasePath  /

// @schemes https http

func main() {
	root := &cobra.Command{
		Use:           "sandboxd",
		Short:         "Sandbox app service: lifecycle and directory of generated sandbox apps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFlag, "env", "loc", "Environment: loc/prod/example")
	root.PersistentFlags().StringVar(&configFlag, "config", "", "Config file, overrides --env")

	root.AddCommand(serveCmd(), reconcileCmd(), terminateAllCmd(), eventsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic cleanup job",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := initAll()
			if err != nil {
				return err
			}
			defer cleanup()

			srv := &http.Server{
				Addr:    ":" + conf.Cfg.Server.Port,
				Handler: controller.SetupRouter(conf.Cfg, svc),
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go startServer(srv)
			logging.Info("sandbox API service started", "port", conf.Cfg.Server.Port)

			if conf.Cfg.Cleanup.Enable {
				go startCleanupService(ctx, svc, conf.Cfg.Cleanup.Interval())
				logging.Info("cleanup service started", "interval", conf.Cfg.Cleanup.Interval())
			}

			waitForShutdown()
			logging.Info("shutting down sandbox service")

			cancel()
			shutdownServer(srv)
			logging.Info("server exited")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	var (
		probes int
		prune  bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one cleanup pass and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := initAll()
			if err != nil {
				return err
			}
			defer cleanup()

			policy := sandbox_service.CleanupPolicy{
				ProbeAttempts: conf.Cfg.Cleanup.ProbeAttempts,
				ProbeDelay:    conf.Cfg.Sandbox.HealthDelay(),
				PruneOrphans:  prune,
			}
			if probes > 0 {
				policy.ProbeAttempts = probes
			}

			report := svc.CleanupWith(cmd.Context(), policy)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().IntVar(&probes, "probes", 0, "Liveness probes per app (default from config)")
	cmd.Flags().BoolVar(&prune, "prune-orphans", false, "Also delete data records missing from the catalogue")
	return cmd
}

func terminateAllCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "terminate-all",
		Short: "Terminate every catalogued sandbox and clear the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to terminate every app without --yes")
			}

			svc, cleanup, err := initAll()
			if err != nil {
				return err
			}
			defer cleanup()

			total := len(svc.ListApps())
			bar := progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Terminating sandboxes"),
				progressbar.OptionSetWidth(50),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetRenderBlankState(true),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			)

			result := svc.TerminateAll(cmd.Context(), func(id string, ok bool) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()

			fmt.Fprintf(cmd.OutOrStdout(), "\nterminated=%d failed=%d skipped=%d\n",
				result.Terminated, result.Failed, len(result.Skipped))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm termination")
	return cmd
}

func eventsCmd() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print lifecycle events published by a running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address == "" {
				if err := initEnv(); err != nil {
					return err
				}
				if err := conf.InitConfig(); err != nil {
					return err
				}
				address = strings.Replace(conf.Cfg.Events.ZmqAddress, "*", "127.0.0.1", 1)
			}

			out := cmd.OutOrStdout()
			sub := events.NewZMQSubscriber(address, func(e events.Event) error {
				line, err := json.Marshal(e)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(line))
				return err
			}, args...)
			if err := sub.Start(); err != nil {
				return err
			}

			waitForShutdown()
			sub.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Publisher address (default from config)")
	return cmd
}

// startServer start HTTP server
func startServer(srv *http.Server) {
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

// waitForShutdown wait for shutdown signal
func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}

// shutdownServer gracefully shutdown server
func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("server forced to shutdown", "error", err)
	}
}

// startCleanupService removes dead apps now and then once per interval
func startCleanupService(ctx context.Context, svc *sandbox_service.SandboxAppService, interval time.Duration) {
	runCleanup(ctx, svc)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCleanup(ctx, svc)
		}
	}
}

func runCleanup(ctx context.Context, svc *sandbox_service.SandboxAppService) {
	report := svc.Cleanup(ctx)
	if len(report.Errors) > 0 {
		logging.Warn("cleanup finished with errors", "errors", report.Errors)
		return
	}
	logging.Info("cleanup completed", "checked", report.Checked, "removed", report.RemovedCount())
}
