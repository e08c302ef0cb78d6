package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateFrameIO(); err != nil {
		return err
	}
	return c.validateObjectStore()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.PollIntervalSeconds <= 0 {
		return errors.New("server.poll_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "json", "text", "auto":
	default:
		return fmt.Errorf("logging.format must be json, text or auto, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}

func (c *Config) validateMedia() error {
	if c.Media.ThumbnailWidth <= 0 || c.Media.ThumbnailHeight <= 0 {
		return errors.New("media.thumbnail_width and media.thumbnail_height must be positive")
	}
	if c.Media.ProbeTimeoutSeconds <= 0 || c.Media.ThumbnailTimeoutSeconds <= 0 || c.Media.RenderTimeoutSeconds <= 0 {
		return errors.New("media timeouts must be positive")
	}
	return nil
}

func (c *Config) validateFrameIO() error {
	if !c.FrameIO.Enabled {
		return nil
	}
	if c.FrameIO.Token == "" {
		return fmt.Errorf("frameio.token is required when frameio is enabled (or set %s)", EnvFrameIOKey)
	}
	if c.FrameIO.ProjectID == "" {
		return fmt.Errorf("frameio.project_id is required when frameio is enabled (or set %s)", EnvFrameIOProj)
	}
	if c.FrameIO.TimeoutSeconds <= 0 {
		return errors.New("frameio.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateObjectStore() error {
	if !c.ObjectStore.Enabled {
		return nil
	}
	if c.ObjectStore.Endpoint == "" || c.ObjectStore.Bucket == "" {
		return errors.New("object_store.endpoint and object_store.bucket are required when object_store is enabled")
	}
	if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
		return fmt.Errorf("object_store credentials are required (set %s and %s)", EnvS3AccessKey, EnvS3SecretKey)
	}
	return nil
}
