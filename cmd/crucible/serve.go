package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/crucible/internal/api"
	"github.com/heimdex/crucible/internal/config"
	"github.com/heimdex/crucible/internal/logging"
	"github.com/heimdex/crucible/internal/media"
	"github.com/heimdex/crucible/internal/playback"
	"github.com/heimdex/crucible/internal/review"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the review queue and the local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd, a)
		},
	}
}

func serve(cmd *cobra.Command, a *app) error {
	startTime := time.Now()
	logger := a.logger
	cfg := a.cfg

	logger.Info("starting crucible",
		"version", config.Version,
		"build_time", config.BuildTime,
		"git_commit", config.GitCommit,
		"data_dir", cfg.Paths.DataDir,
	)

	authToken, err := ensureAuthToken(cmd.Context(), a.repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"crucible " + config.Version, ""},
		[][]string{
			{"API URL", "http://" + cfg.Addr()},
			{"Auth Token", authToken},
			{"Data Dir", cfg.Paths.DataDir},
		},
		nil,
	))

	doctor := media.NewCachedDoctor(media.ExecDoctor{
		FFmpegPath:  cfg.Media.FFmpegPath,
		FFprobePath: cfg.Media.FFprobePath,
	}, logging.WithComponent(logger, "doctor"))

	initCtx, initCancel := context.WithTimeout(cmd.Context(), cfg.ProbeTimeout())
	if caps, err := doctor.Refresh(initCtx); err != nil {
		logger.Warn("initial media doctor probe failed", "error", err)
	} else if !caps.Ready() {
		logger.Warn("media tools missing, queued runs will fail until installed",
			"ffmpeg", caps.FFmpeg.Available,
			"ffprobe", caps.FFprobe.Available,
		)
	} else {
		logger.Info("media tools detected", "ffmpeg", caps.FFmpeg.Version, "ffprobe", caps.FFprobe.Version)
	}
	initCancel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := review.NewRunner(a.service, a.repo, doctor, cfg.PollInterval(), logging.WithComponent(logger, "runner"))
	go runner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Addr:           cfg.Addr(),
		Service:        a.service,
		Repository:     a.repo,
		Annotations:    a.annotations,
		PlaybackServer: playback.NewServer(logging.WithComponent(logger, "playback")),
		Runner:         runner,
		Doctor:         doctor,
		Logger:         logging.WithComponent(logger, "api"),
		StartTime:      startTime,
		Version:        config.Version,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
			runErr = err
		}
	}

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	// The database and lock are released on return; the runner must be done
	// writing first.
	select {
	case <-runner.Stopped():
	case <-shutdownCtx.Done():
		logger.Warn("runner still busy at shutdown deadline", "run_id", runner.ActiveRunID())
	}

	logger.Info("shutdown complete")
	return runErr
}

func ensureAuthToken(ctx context.Context, repo review.Repository) (string, error) {
	existing, err := repo.GetConfig(ctx, review.ConfigKeyAuthToken)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, review.ConfigKeyAuthToken, token); err != nil {
		return "", err
	}
	return token, nil
}
