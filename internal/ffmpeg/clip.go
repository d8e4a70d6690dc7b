package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/reelcut/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start  time.Duration
	End    time.Duration
	Output string
	// If true, use -c copy for fast extraction; cuts snap to keyframes
	CopyCodec bool
	Encode    EncodeOptions
}

// ExtractClip cuts the video stream of [Start, End) into Output. Audio is always dropped.
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	duration := opts.End - opts.Start
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration: end must be after start")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", duration).
		Bool("copy_codec", opts.CopyCodec).
		Msg("extracting clip")

	args := []string{
		"-i", input,
		"-ss", util.FormatDuration(opts.Start),
		"-t", util.FormatDuration(duration),
		"-map", "0:v:0",
		"-an",
	}

	if opts.CopyCodec {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, opts.Encode.args()...)
	}

	args = append(args, opts.Output)

	runOpts := RunOptions{
		Args:     args,
		Duration: duration,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	return nil
}
