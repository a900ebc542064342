package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/spheredist/internal/config"
	"github.com/cwbudde/spheredist/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	streamFPS  int
	serveCfg   = config.Default()
	serveTitle string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server with a live sphere view",
	Long: `Starts an HTTP server that animates the points and streams frames to
browsers over SSE. Points are added and removed with POST and DELETE on
/api/v1/points.`,
	RunE: runServe,
}

func init() {
	bindConfigFlags(serveCmd.Flags(), &serveCfg)
	serveCmd.Flags().IntVar(&serveCfg.FPS, "fps", serveCfg.FPS, "Animation frames per second")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "Listen address")
	serveCmd.Flags().IntVar(&streamFPS, "stream-fps", 30, "Frames per second sent to each browser")
	serveCmd.Flags().StringVar(&serveTitle, "title", "", "Page title")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := newSession(serveCfg)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := server.Options{
		FrameInterval: serveCfg.FrameInterval(),
		Title:         serveTitle,
	}
	if streamFPS > 0 {
		opts.StreamInterval = time.Second / time.Duration(streamFPS)
	}
	srv := server.NewServer(serveAddr, s.coord, s.animOptions(serveCfg), opts)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		return err
	}
	return nil
}
