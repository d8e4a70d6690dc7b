package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/keagan/reelcut/pkg/util"
)

type contextKey string

const configKey contextKey = "config"

// DefaultFolder is the OutputConfig.Folder sentinel for DefaultOutputDir
const DefaultFolder = "default"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir" toml:"work_dir"`
	Concurrency int    `yaml:"concurrency" toml:"concurrency"`
	// Seed for clip lengths and eviction; 0 picks one from the clock
	Seed uint64 `yaml:"seed" toml:"seed"`

	Output    OutputConfig    `yaml:"output" toml:"output"`
	Clip      ClipConfig      `yaml:"clip" toml:"clip"`
	Selection SelectionConfig `yaml:"selection" toml:"selection"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg" toml:"ffmpeg"`
}

type OutputConfig struct {
	Folder         string  `yaml:"folder" toml:"folder"`
	FileName       string  `yaml:"file_name" toml:"file_name"`
	Codec          string  `yaml:"codec" toml:"codec"`
	CRF            int     `yaml:"crf" toml:"crf"`
	Preset         string  `yaml:"preset" toml:"preset"`
	FlipHorizontal bool    `yaml:"flip_horizontal" toml:"flip_horizontal"`
	Width          int     `yaml:"width" toml:"width"`
	Height         int     `yaml:"height" toml:"height"`
	FPS            float64 `yaml:"fps" toml:"fps"`
}

// ClipConfig lengths are in seconds. Set either Duration or MinDuration/MaxDuration.
type ClipConfig struct {
	Duration     float64 `yaml:"duration" toml:"duration"`
	MinDuration  float64 `yaml:"min_duration" toml:"min_duration"`
	MaxDuration  float64 `yaml:"max_duration" toml:"max_duration"`
	WholeSeconds bool    `yaml:"whole_seconds" toml:"whole_seconds"`
}

type SelectionConfig struct {
	Mode string `yaml:"mode" toml:"mode"`
	// TargetDuration in seconds, or TargetMinutes; not both
	TargetDuration float64 `yaml:"target_duration" toml:"target_duration"`
	TargetMinutes  float64 `yaml:"target_minutes" toml:"target_minutes"`
	KeepRatio      int     `yaml:"keep_ratio" toml:"keep_ratio"`
	Eviction       string  `yaml:"eviction" toml:"eviction"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path" toml:"binary_path"`
	ProbePath  string `yaml:"probe_path" toml:"probe_path"`
	Threads    int    `yaml:"threads" toml:"threads"`
	// CopyClips extracts with -c copy; faster but cuts snap to keyframes
	CopyClips bool `yaml:"copy_clips" toml:"copy_clips"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if err := unmarshal(path, data, cfg); err != nil {
		return err
	}

	var keys explicitKeys
	if err := unmarshal(path, data, &keys); err != nil {
		return err
	}
	keys.resolve(cfg)
	return nil
}

func unmarshal(path string, data []byte, v any) error {
	if isTOML(path) {
		_, err := toml.Decode(string(data), v)
		return err
	}
	return yaml.Unmarshal(data, v)
}

// explicitKeys records which alternative settings a file actually wrote, so a
// file choosing min/max or target_minutes is not shadowed by the defaults.
type explicitKeys struct {
	Clip struct {
		Duration    *float64 `yaml:"duration" toml:"duration"`
		MinDuration *float64 `yaml:"min_duration" toml:"min_duration"`
		MaxDuration *float64 `yaml:"max_duration" toml:"max_duration"`
	} `yaml:"clip" toml:"clip"`
	Selection struct {
		TargetDuration *float64 `yaml:"target_duration" toml:"target_duration"`
		TargetMinutes  *float64 `yaml:"target_minutes" toml:"target_minutes"`
	} `yaml:"selection" toml:"selection"`
}

func (k explicitKeys) resolve(cfg *Config) {
	clip := k.Clip
	if clip.Duration == nil && (clip.MinDuration != nil || clip.MaxDuration != nil) {
		cfg.Clip.Duration = 0
	}
	sel := k.Selection
	if sel.TargetDuration == nil && sel.TargetMinutes != nil {
		cfg.Selection.TargetDuration = 0
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Save writes configuration to file, as TOML when the extension is .toml
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := util.EnsureDir(dir); err != nil {
			return err
		}
	}

	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := toml.NewEncoder(f).Encode(c); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{
		Concurrency: 4,
		Output: OutputConfig{
			Folder:   DefaultFolder,
			FileName: "output.mp4",
			Codec:    "libx264",
			CRF:      23,
			Preset:   "medium",
		},
		Clip: ClipConfig{
			Duration: 5,
		},
		Selection: SelectionConfig{
			Mode:           "quantity",
			TargetDuration: 10 * 60,
			KeepRatio:      6,
			Eviction:       "remove",
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./reelcut.yaml",
		"./reelcut.yml",
		"./reelcut.toml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".reelcut", "config.yaml"),
			filepath.Join(home, ".reelcut", "config.toml"),
		)
	}

	for _, path := range candidates {
		if util.FileExists(path) {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
