// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-curator/internal/scheduler"
)

// --- serve subcommand ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled cycle and the HTTP API until interrupted",
	Long: `Serve starts the cron-driven cycle (retention, scoring, edition rebuilds)
and the HTTP API. It stops on SIGINT or SIGTERM, waiting for a running
cycle to finish.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if noCron, _ := cmd.Flags().GetBool("no-scheduler"); !noCron {
		if err := a.scheduler.Start(ctx, a.cfg.Scheduler.Spec); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := a.scheduler.Stop(stopCtx); err != nil {
				a.log.Warn().Err(err).Msg("scheduler did not stop cleanly")
			}
		}()
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	return a.server().ListenAndServe(ctx, addr)
}

// --- cycle subcommand ---

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one full cycle and exit",
	Long: `Cycle runs the archive and purge passes, scores every unscored article in
the batch window and rebuilds today's edition for every active user.`,
	RunE: runCycle,
}

func runCycle(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.scheduler.RunCycle(ctx)
	printCycle(cmd.OutOrStdout(), res)
	if errors.Is(err, scheduler.ErrBusy) {
		return nil
	}
	return err
}

func printCycle(w io.Writer, res scheduler.CycleResult) {
	fmt.Fprintf(w, "Archived: %d, purged: %d (unlinked %d duplicates)\n",
		res.Retention.Archived, res.Retention.Purged, res.Retention.Unlinked)
	printBatch(w, res.Batch)
	fmt.Fprintf(w, "Editions: %d rebuilt, %d failed of %d users\n",
		res.Editions.Successful, res.Editions.Failed, res.Editions.Total)
	fmt.Fprintf(w, "Elapsed: %s\n", res.Elapsed.Round(time.Millisecond))
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Bool("no-scheduler", false, "serve the API without running the cron cycle")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cycleCmd)
}
