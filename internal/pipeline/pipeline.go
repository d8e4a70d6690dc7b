package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/config"
	"github.com/keagan/reelcut/internal/ffmpeg"
	"github.com/keagan/reelcut/pkg/util"
)

// Pipeline cuts one source video into a highlight reel.
// A Pipeline runs once; create a new one for every input.
type Pipeline struct {
	logger   zerolog.Logger
	config   *config.Config
	media    MediaTool
	observer Observer

	mu    sync.Mutex
	stage Stage
	// now is replaceable so tests can pin the clock-derived seed
	now func() time.Time
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithObserver reports progress to o
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// New creates a pipeline around a media tool. The configuration is validated
// here so that bad settings fail before any file is touched.
func New(logger zerolog.Logger, cfg *config.Config, media MediaTool, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if media == nil {
		return nil, fmt.Errorf("media tool is required")
	}

	p := &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		config:   cfg,
		media:    media,
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewWithFFmpeg creates a pipeline backed by the ffmpeg binaries named in cfg
func NewWithFFmpeg(logger zerolog.Logger, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	exec, err := ffmpeg.New(logger, ffmpeg.Options{
		BinaryPath: cfg.FFmpeg.BinaryPath,
		ProbePath:  cfg.FFmpeg.ProbePath,
		Threads:    cfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}
	return New(logger, cfg, exec, opts...)
}

// Stage returns the last stage the pipeline reached
func (p *Pipeline) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

func (p *Pipeline) advance(to Stage, fields map[string]any, since time.Time) {
	p.mu.Lock()
	if to <= p.stage {
		p.mu.Unlock()
		panic(fmt.Sprintf("pipeline: cannot move from %s to %s", p.stage, to))
	}
	p.stage = to
	p.mu.Unlock()

	p.logger.Debug().Str("stage", to.String()).Msg("stage reached")
	p.observer.OnStage(to, fields, time.Since(since))
}

func (p *Pipeline) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stage != StageIdle {
		return fmt.Errorf("pipeline already ran (stage %s)", p.stage)
	}
	return nil
}

// Plan loads the source and selects survivors without writing any video
func (p *Pipeline) Plan(ctx context.Context, input string) (*Result, error) {
	if err := p.begin(); err != nil {
		return nil, err
	}
	start := time.Now()

	res, err := p.load(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := p.selectClips(res); err != nil {
		return nil, err
	}

	res.Filters = p.filters()
	res.Elapsed = time.Since(start)
	return res, nil
}

// Run executes load, partition, selection, assembly and persistence in order.
// Any failure aborts the run; no partial output is left at the output path.
func (p *Pipeline) Run(ctx context.Context, input string) (*Result, error) {
	if err := p.begin(); err != nil {
		return nil, err
	}
	start := time.Now()

	p.logger.Info().
		Str("input", input).
		Str("mode", p.config.Selection.Mode).
		Msg("starting highlight pipeline")

	res, err := p.load(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := p.selectClips(res); err != nil {
		return nil, err
	}
	res.Filters = p.filters()

	outputPath, err := p.config.OutputPath()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", clips.ErrOutputWrite, err)
	}
	if err := util.EnsureWritableDir(filepath.Dir(outputPath)); err != nil {
		return nil, fmt.Errorf("%w: %w", clips.ErrOutputWrite, err)
	}

	tmpOutput, err := p.assemble(ctx, res, outputPath)
	if err != nil {
		return nil, err
	}

	persistStart := time.Now()
	if err := os.Rename(tmpOutput, outputPath); err != nil {
		util.CleanupFiles(tmpOutput)
		return nil, fmt.Errorf("%w: %w", clips.ErrOutputWrite, err)
	}
	res.OutputPath = outputPath
	res.Elapsed = time.Since(start)
	p.advance(StagePersisted, map[string]any{"output": outputPath}, persistStart)

	p.logger.Info().
		Str("output", outputPath).
		Dur("elapsed", res.Elapsed).
		Msg("highlight written")

	return res, nil
}

func (p *Pipeline) load(ctx context.Context, input string) (*Result, error) {
	start := time.Now()
	if input == "" {
		return nil, fmt.Errorf("%w: input path cannot be empty", clips.ErrSourceUnavailable)
	}

	info, err := p.media.ProbeVideo(ctx, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", clips.ErrSourceUnavailable, err)
	}

	p.advance(StageLoaded, map[string]any{
		"duration":  info.Duration.Seconds(),
		"has_audio": info.HasAudio,
	}, start)

	return &Result{Input: input, Source: info, Seed: p.seed()}, nil
}

func (p *Pipeline) seed() uint64 {
	if p.config.Seed != 0 {
		return p.config.Seed
	}
	return uint64(p.now().UnixNano())
}

func (p *Pipeline) selectClips(res *Result) error {
	start := time.Now()
	req := p.config.PlanRequest(res.Source.Duration)

	plan, err := clips.Select(req, clips.NewRand(res.Seed))
	if err != nil {
		return err
	}
	res.Plan = plan

	p.advance(StagePartitioned, map[string]any{
		"candidates": plan.Candidates.Len(),
		"boundary":   plan.Boundary.Seconds(),
	}, start)
	p.advance(StageSelected, map[string]any{
		"survivors": plan.Survivors.Len(),
		"deleted":   plan.Deleted,
		"output":    plan.OutputDuration().Seconds(),
		"seed":      res.Seed,
	}, start)
	return nil
}

// filters is the single global transform applied to the joined output
func (p *Pipeline) filters() []string {
	fb := ffmpeg.NewFilterBuilder()
	if p.config.Output.FlipHorizontal {
		fb.HFlip()
	}
	fb.Scale(p.config.Output.Width, p.config.Output.Height).
		FPS(p.config.Output.FPS)
	return fb.BuildAll()
}

func (p *Pipeline) encodeOptions() ffmpeg.EncodeOptions {
	return ffmpeg.EncodeOptions{
		VideoCodec: p.config.Output.Codec,
		CRF:        p.config.Output.CRF,
		Preset:     p.config.Output.Preset,
	}
}

// assemble cuts every survivor and joins them into a temporary file next to
// outputPath. It returns the temporary path.
func (p *Pipeline) assemble(ctx context.Context, res *Result, outputPath string) (string, error) {
	start := time.Now()
	runID := uuid.New().String()

	workDir := filepath.Join(p.workRoot(), "reelcut-"+runID)
	if err := util.EnsureDir(workDir); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	survivors := res.Plan.Survivors.All()
	paths, err := p.extractAll(ctx, res.Input, workDir, survivors)
	if err != nil {
		return "", err
	}

	tmpOutput := filepath.Join(filepath.Dir(outputPath), ".reelcut-"+runID+filepath.Ext(outputPath))

	// clips already carry the output codec unless they were stream-copied
	reencode := len(res.Filters) > 0 || p.config.FFmpeg.CopyClips
	err = p.media.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs:       paths,
		Output:       tmpOutput,
		ReEncode:     reencode,
		Encode:       p.encodeOptions(),
		Filters:      res.Filters,
		Duration:     res.Plan.OutputDuration(),
		ProgressFunc: p.observer.OnProgress,
	})
	if err != nil {
		util.CleanupFiles(tmpOutput)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w", clips.ErrOutputWrite, err)
	}

	p.advance(StageAssembled, map[string]any{
		"clips":    len(paths),
		"reencode": reencode,
		"filters":  res.Filters,
	}, start)
	return tmpOutput, nil
}

func (p *Pipeline) workRoot() string {
	if p.config.WorkDir != "" {
		return p.config.WorkDir
	}
	return os.TempDir()
}

// extractAll cuts survivors in parallel. paths[i] always belongs to survivors[i],
// so the join order is chronological whatever order the cuts finish in.
func (p *Pipeline) extractAll(ctx context.Context, input, workDir string, survivors []clips.Clip) ([]string, error) {
	paths := lo.Map(survivors, func(c clips.Clip, _ int) string {
		return filepath.Join(workDir, c.ID()+".mkv")
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	var done atomic.Int64
	for i, clip := range survivors {
		g.Go(func() error {
			err := p.media.ExtractClip(gctx, input, ffmpeg.ClipOptions{
				Start:     clip.Start,
				End:       clip.End,
				Output:    paths[i],
				CopyCodec: p.config.FFmpeg.CopyClips,
				Encode:    p.encodeOptions(),
			})
			if err != nil {
				return fmt.Errorf("extract %s: %w", clip.ID(), err)
			}
			p.observer.OnClipExtracted(int(done.Add(1)), len(survivors), clip)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return paths, nil
}

// IsUserError reports whether err was caused by input or configuration rather than a tool failure
func IsUserError(err error) bool {
	return errors.Is(err, clips.ErrInvalidConfiguration) ||
		errors.Is(err, clips.ErrSourceUnavailable) ||
		errors.Is(err, clips.ErrEmptySelection)
}
