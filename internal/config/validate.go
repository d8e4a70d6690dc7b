package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/pkg/util"
)

// Validate checks every setting that would make planning or encoding fail.
// All problems are reported together; each unwraps to clips.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if c == nil {
		return &clips.ConfigError{Field: "config", Reason: "nil"}
	}

	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &clips.ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if c.Concurrency < 1 {
		add("concurrency", "must be at least 1, got %d", c.Concurrency)
	}

	if strings.TrimSpace(c.Output.Folder) == "" {
		add("output.folder", "must not be empty; use %q for the default folder", DefaultFolder)
	}
	name := strings.TrimSpace(c.Output.FileName)
	if name == "" || name != filepath.Base(name) {
		add("output.file_name", "must be a plain file name, got %q", c.Output.FileName)
	} else if filepath.Ext(name) == "" {
		add("output.file_name", "needs an extension to pick the container, got %q", c.Output.FileName)
	}
	if c.Output.CRF < 0 || c.Output.CRF > 51 {
		add("output.crf", "must be between 0 and 51, got %d", c.Output.CRF)
	}
	if (c.Output.Width > 0) != (c.Output.Height > 0) {
		add("output.width", "width and height must be set together")
	}
	if c.Output.FPS < 0 {
		add("output.fps", "cannot be negative")
	}

	if c.Clip.Duration < 0 {
		add("clip.duration", "must be positive, got %g", c.Clip.Duration)
	} else if c.Clip.Duration > 0 && (c.Clip.MinDuration != 0 || c.Clip.MaxDuration != 0) {
		add("clip.duration", "cannot be combined with min_duration/max_duration; set duration to 0 for a range")
	}
	if err := c.Policy().Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Selection.TargetDuration < 0 || c.Selection.TargetMinutes < 0 {
		add("selection.target_duration", "must be positive")
	} else if c.Selection.TargetDuration > 0 && c.Selection.TargetMinutes > 0 {
		add("selection.target_minutes", "cannot be combined with target_duration")
	} else if c.Target() <= 0 {
		add("selection.target_duration", "must be positive, got %s", c.Target())
	}

	switch clips.Mode(c.Selection.Mode) {
	case clips.ModeQuantity, clips.ModeRatio:
	default:
		add("selection.mode", "must be %q or %q, got %q", clips.ModeQuantity, clips.ModeRatio, c.Selection.Mode)
	}
	if c.Selection.KeepRatio < 1 {
		add("selection.keep_ratio", "must be at least 1, got %d", c.Selection.KeepRatio)
	}
	switch clips.Eviction(c.Selection.Eviction) {
	case clips.EvictRemove, clips.EvictSample:
	default:
		add("selection.eviction", "must be %q or %q, got %q", clips.EvictRemove, clips.EvictSample, c.Selection.Eviction)
	}

	if c.FFmpeg.Threads < 0 {
		add("ffmpeg.threads", "cannot be negative")
	}

	return errors.Join(errs...)
}

// Policy converts the clip settings into a length policy
func (c *Config) Policy() clips.LengthPolicy {
	if c.Clip.Duration > 0 {
		return clips.FixedLength(util.Seconds(c.Clip.Duration))
	}
	return clips.LengthPolicy{
		Min:          util.Seconds(c.Clip.MinDuration),
		Max:          util.Seconds(c.Clip.MaxDuration),
		WholeSeconds: c.Clip.WholeSeconds,
	}
}

// Target is the desired output length
func (c *Config) Target() time.Duration {
	if c.Selection.TargetDuration > 0 {
		return util.Seconds(c.Selection.TargetDuration)
	}
	return util.Seconds(c.Selection.TargetMinutes * 60)
}

// PlanRequest builds the selection request for a source of the given length
func (c *Config) PlanRequest(total time.Duration) clips.PlanRequest {
	return clips.PlanRequest{
		Total:     total,
		Target:    c.Target(),
		Policy:    c.Policy(),
		Mode:      clips.Mode(c.Selection.Mode),
		KeepRatio: c.Selection.KeepRatio,
		Eviction:  clips.Eviction(c.Selection.Eviction),
	}
}

// DefaultOutputDir is where output goes when the folder is "default"
func DefaultOutputDir() (string, error) {
	return util.ExpandHome(filepath.Join("~", "Videos", "Captures", "Output"))
}

// OutputDir resolves the output folder, expanding "default" and a leading ~
func (c *Config) OutputDir() (string, error) {
	folder := strings.TrimSpace(c.Output.Folder)
	if strings.EqualFold(folder, DefaultFolder) {
		return DefaultOutputDir()
	}
	return util.ExpandHome(folder)
}

// OutputPath is the full path of the file to write
func (c *Config) OutputPath() (string, error) {
	dir, err := c.OutputDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Output.FileName), nil
}
