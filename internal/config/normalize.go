package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) applyEnv() error {
	if v, ok := lookup(EnvDataDir); ok {
		c.Paths.DataDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		c.Logging.Format = v
	}
	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvFrameIOKey); ok {
		c.FrameIO.Token = v
	}
	if v, ok := lookup(EnvFrameIOProj); ok {
		c.FrameIO.ProjectID = v
	}
	if v, ok := lookup(EnvS3AccessKey); ok {
		c.ObjectStore.AccessKey = v
	}
	if v, ok := lookup(EnvS3SecretKey); ok {
		c.ObjectStore.SecretKey = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Review.AnnotationSource = strings.TrimSpace(c.Review.AnnotationSource)
	if c.Review.AnnotationSource == "" {
		c.Review.AnnotationSource = defaultSource
	}
	c.FrameIO.BaseURL = strings.TrimRight(strings.TrimSpace(c.FrameIO.BaseURL), "/")
	if c.FrameIO.BaseURL == "" {
		c.FrameIO.BaseURL = defaultFrameIOURL
	}
	c.ObjectStore.Prefix = strings.Trim(strings.TrimSpace(c.ObjectStore.Prefix), "/")
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ThumbnailsDir) == "" {
		c.Paths.ThumbnailsDir = filepath.Join(c.Paths.DataDir, "thumbnails")
	}
	if c.Paths.ThumbnailsDir, err = expandPath(c.Paths.ThumbnailsDir); err != nil {
		return fmt.Errorf("paths.thumbnails_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RendersDir) == "" {
		c.Paths.RendersDir = filepath.Join(c.Paths.DataDir, "renders")
	}
	if c.Paths.RendersDir, err = expandPath(c.Paths.RendersDir); err != nil {
		return fmt.Errorf("paths.renders_dir: %w", err)
	}
	return nil
}
