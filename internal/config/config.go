// Package config loads crucible settings: built-in defaults, then an
// optional TOML file, then environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds the data directory and where run artifacts land.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	ThumbnailsDir string `toml:"thumbnails_dir"`
	RendersDir    string `toml:"renders_dir"`
}

// Server configures `crucible serve`.
type Server struct {
	Bind                string `toml:"bind"`
	Port                int    `toml:"port"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Media configures the ffmpeg/ffprobe wrappers.
type Media struct {
	FFmpegPath              string `toml:"ffmpeg_path"`
	FFprobePath             string `toml:"ffprobe_path"`
	ThumbnailWidth          int    `toml:"thumbnail_width"`
	ThumbnailHeight         int    `toml:"thumbnail_height"`
	ProbeTimeoutSeconds     int    `toml:"probe_timeout_seconds"`
	ThumbnailTimeoutSeconds int    `toml:"thumbnail_timeout_seconds"`
	RenderTimeoutSeconds    int    `toml:"render_timeout_seconds"`
}

// Review holds range grouping policy.
type Review struct {
	IncludeIsolatedFrames bool   `toml:"include_isolated_frames"`
	AnnotationSource      string `toml:"annotation_source"`
}

// FrameIO configures clip upload to a Frame.io-style asset API.
type FrameIO struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	ProjectID      string `toml:"project_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ObjectStore configures clip upload to an S3-compatible bucket.
type ObjectStore struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Config is the full crucible configuration.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Server      Server      `toml:"server"`
	Logging     Logging     `toml:"logging"`
	Media       Media       `toml:"media"`
	Review      Review      `toml:"review"`
	FrameIO     FrameIO     `toml:"frameio"`
	ObjectStore ObjectStore `toml:"object_store"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load resolves, parses and validates the configuration. It returns the
// config, the path it resolved to and whether that file existed. A missing
// file is not an error: defaults and environment apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the data, thumbnail and render directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ThumbnailsDir, c.Paths.RendersDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DBPath returns the full path to the SQLite database file
func (c *Config) DBPath() string {
	return filepath.Join(c.Paths.DataDir, DBFilename)
}

// LockPath is the file locked while a process owns the data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, LockFilename)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Server.PollIntervalSeconds) * time.Second
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Media.ProbeTimeoutSeconds) * time.Second
}

func (c *Config) ThumbnailTimeout() time.Duration {
	return time.Duration(c.Media.ThumbnailTimeoutSeconds) * time.Second
}

func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Media.RenderTimeoutSeconds) * time.Second
}

func (c *Config) FrameIOTimeout() time.Duration {
	return time.Duration(c.FrameIO.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath applies the config's ~ and absolute-path rules to a CLI argument.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
