package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/keagan/reelcut/pkg/util"
)

// ConcatOptions defines concatenation parameters
type ConcatOptions struct {
	Inputs   []string
	Output   string
	ReEncode bool
	Encode   EncodeOptions
	// Filters is a -vf chain applied once to the joined stream; requires ReEncode
	Filters []string
	// Duration of the joined output, for progress percentages
	Duration     time.Duration
	ProgressFunc ProgressFunc
}

// Concat joins video files end to end with hard cuts, in the order given
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if len(opts.Filters) > 0 && !opts.ReEncode {
		return fmt.Errorf("filters require re-encoding")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Strs("filters", opts.Filters).
		Msg("concatenating videos")

	// Create temporary concat file list
	concatFile, err := createConcatFile(filepath.Dir(opts.Output), opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
		"-an",
	}

	if opts.ReEncode {
		if len(opts.Filters) > 0 {
			args = append(args, "-vf", strings.Join(opts.Filters, ","))
		}
		args = append(args, opts.Encode.args()...)
	} else {
		args = append(args, "-c", "copy")
	}

	args = append(args, "-movflags", "+faststart", opts.Output)

	runOpts := RunOptions{
		Args:            args,
		Duration:        opts.Duration,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("concatenating")
		},
	}

	return e.Run(ctx, runOpts)
}

// createConcatFile generates a temporary file list for ffmpeg concat
func createConcatFile(dir string, inputs []string) (string, error) {
	tmpFile, err := util.TempFile(dir, ".reelcut-concat-", ".txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", escapeConcatPath(absPath)); err != nil {
			return "", err
		}
	}

	return tmpFile.Name(), nil
}

// escapeConcatPath quotes a path for a single-quoted concat demuxer entry
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "'", `'\''`)
}
