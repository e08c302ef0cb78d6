package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/heimdex/crucible/internal/annotations"
	"github.com/heimdex/crucible/internal/cloud"
	"github.com/heimdex/crucible/internal/config"
	"github.com/heimdex/crucible/internal/db"
	"github.com/heimdex/crucible/internal/logging"
	"github.com/heimdex/crucible/internal/media"
	"github.com/heimdex/crucible/internal/review"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// app holds the wired collaborators for one command invocation.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *db.DB
	lock        *flock.Flock
	repo        *review.SQLiteRepository
	annotations *annotations.SQLiteRepository
	service     *review.Service
	tools       media.FFmpeg
}

type appOptions struct {
	// stub replaces ffmpeg/ffprobe with a recorder answering with info.
	stub *media.VideoInfo
}

// openApp locks the data directory and wires the database, media tools,
// uploader and review service.
func (c *commandContext) openApp(opts appOptions) (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	lock, err := acquireLock(cfg.LockPath())
	if err != nil {
		return nil, err
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	var tools media.FFmpeg
	if opts.stub != nil {
		tools = media.NewStubFFmpeg(*opts.stub, logging.WithComponent(logger, "media"))
	} else {
		tools = media.NewTools(mediaConfig(cfg, logger))
	}

	uploader, err := newUploader(cfg, logger)
	if err != nil {
		database.Close()
		_ = lock.Unlock()
		return nil, err
	}

	repo := review.NewRepository(database.Conn())
	if n, err := repo.FailInterruptedRuns(context.Background()); err != nil {
		logger.Warn("failed to mark interrupted runs", "error", err)
	} else if n > 0 {
		logger.Warn("marked interrupted runs as failed", "count", n)
	}
	ann := annotations.NewRepository(database.Conn())
	svc := review.NewService(repo, ann, tools, uploader, review.Dirs{
		Thumbnails: cfg.Paths.ThumbnailsDir,
		Renders:    cfg.Paths.RendersDir,
		Reports:    filepath.Join(cfg.Paths.DataDir, "reports"),
	}, logging.WithComponent(logger, "review"))
	svc.SetAnnotationSource(cfg.Review.AnnotationSource)

	return &app{
		cfg:         cfg,
		logger:      logger,
		db:          database,
		lock:        lock,
		repo:        repo,
		annotations: ann,
		service:     svc,
		tools:       tools,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
	if err := a.lock.Unlock(); err != nil {
		a.logger.Warn("failed to release lock", "error", err)
	}
}

func acquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another crucible process is using %s", filepath.Dir(path))
	}
	return lock, nil
}

func mediaConfig(cfg *config.Config, logger *slog.Logger) media.Config {
	mc := media.DefaultConfig(logging.WithComponent(logger, "media"))
	mc.FFmpegPath = cfg.Media.FFmpegPath
	mc.FFprobePath = cfg.Media.FFprobePath
	mc.ThumbnailWidth = cfg.Media.ThumbnailWidth
	mc.ThumbnailHeight = cfg.Media.ThumbnailHeight
	mc.ProbeTimeout = cfg.ProbeTimeout()
	mc.ThumbnailTimeout = cfg.ThumbnailTimeout()
	mc.RenderTimeout = cfg.RenderTimeout()
	mc.DebugPaths = strings.EqualFold(cfg.Logging.Level, "debug")
	return mc
}

// newUploader returns nil when no destination is enabled.
func newUploader(cfg *config.Config, logger *slog.Logger) (cloud.Uploader, error) {
	logger = logging.WithComponent(logger, "cloud")
	var uploaders cloud.Multi

	if cfg.FrameIO.Enabled {
		uploaders = append(uploaders, cloud.NewFrameIOClient(
			cfg.FrameIO.BaseURL, cfg.FrameIO.Token, cfg.FrameIO.ProjectID, cfg.FrameIOTimeout(), logger))
		logger.Info("frame.io upload enabled", "base_url", cfg.FrameIO.BaseURL, "token", logging.SanitizeToken(cfg.FrameIO.Token))
	}
	if cfg.ObjectStore.Enabled {
		store, err := cloud.NewObjectStoreUploader(cloud.ObjectStoreConfig{
			Endpoint:  cfg.ObjectStore.Endpoint,
			Bucket:    cfg.ObjectStore.Bucket,
			Prefix:    cfg.ObjectStore.Prefix,
			Region:    cfg.ObjectStore.Region,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			UseSSL:    cfg.ObjectStore.UseSSL,
		}, logger)
		if err != nil {
			return nil, err
		}
		uploaders = append(uploaders, store)
		logger.Info("object store upload enabled", "endpoint", cfg.ObjectStore.Endpoint, "bucket", cfg.ObjectStore.Bucket)
	}

	switch len(uploaders) {
	case 0:
		return nil, nil
	case 1:
		return uploaders[0], nil
	default:
		return uploaders, nil
	}
}
