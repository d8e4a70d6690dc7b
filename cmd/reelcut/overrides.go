package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/keagan/reelcut/internal/config"
	"github.com/keagan/reelcut/pkg/util"
)

// overrides holds the flags that take precedence over the config file.
// Only flags the user actually set are applied.
type overrides struct {
	output       string
	clip         string
	minClip      string
	maxClip      string
	target       string
	mode         string
	keepRatio    int
	eviction     string
	seed         uint64
	flip         bool
	codec        string
	wholeSeconds bool
}

func (o *overrides) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "", "output file path")
	f.StringVar(&o.clip, "clip", "", "fixed clip length (seconds or [HH:]MM:SS)")
	f.StringVar(&o.minClip, "min", "", "minimum clip length; use with --max")
	f.StringVar(&o.maxClip, "max", "", "maximum clip length; use with --min")
	f.StringVarP(&o.target, "target", "t", "", "target output length (seconds or [HH:]MM:SS)")
	f.StringVar(&o.mode, "mode", "", "selection mode: quantity or ratio")
	f.IntVar(&o.keepRatio, "keep-ratio", 0, "ratio mode keeps one clip in this many")
	f.StringVar(&o.eviction, "eviction", "", "eviction strategy: remove or sample")
	f.Uint64Var(&o.seed, "seed", 0, "random seed; 0 derives one from the clock")
	f.BoolVar(&o.flip, "flip", false, "mirror the output horizontally")
	f.StringVar(&o.codec, "codec", "", "output video codec")
	f.BoolVar(&o.wholeSeconds, "whole-seconds", false, "draw variable clip lengths in whole seconds")
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("output") {
		dir, name := filepath.Split(o.output)
		if dir == "" {
			dir = "."
		}
		cfg.Output.Folder = dir
		cfg.Output.FileName = name
	}

	if changed("clip") {
		d, err := util.ParseTimestamp(o.clip)
		if err != nil {
			return fmt.Errorf("--clip: %w", err)
		}
		cfg.Clip.Duration = d.Seconds()
		cfg.Clip.MinDuration = 0
		cfg.Clip.MaxDuration = 0
	}

	if changed("min") || changed("max") {
		// a range replaces any fixed length from the file
		cfg.Clip.Duration = 0
	}
	if changed("min") {
		d, err := util.ParseTimestamp(o.minClip)
		if err != nil {
			return fmt.Errorf("--min: %w", err)
		}
		cfg.Clip.MinDuration = d.Seconds()
	}
	if changed("max") {
		d, err := util.ParseTimestamp(o.maxClip)
		if err != nil {
			return fmt.Errorf("--max: %w", err)
		}
		cfg.Clip.MaxDuration = d.Seconds()
	}

	if changed("target") {
		d, err := util.ParseTimestamp(o.target)
		if err != nil {
			return fmt.Errorf("--target: %w", err)
		}
		cfg.Selection.TargetDuration = d.Seconds()
		cfg.Selection.TargetMinutes = 0
	}

	if changed("mode") {
		cfg.Selection.Mode = o.mode
	}
	if changed("keep-ratio") {
		cfg.Selection.KeepRatio = o.keepRatio
	}
	if changed("eviction") {
		cfg.Selection.Eviction = o.eviction
	}
	if changed("seed") {
		cfg.Seed = o.seed
	}
	if changed("flip") {
		cfg.Output.FlipHorizontal = o.flip
	}
	if changed("codec") {
		cfg.Output.Codec = o.codec
	}
	if changed("whole-seconds") {
		cfg.Clip.WholeSeconds = o.wholeSeconds
	}

	return nil
}
