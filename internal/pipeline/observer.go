package pipeline

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/ffmpeg"
)

// Observer receives progress from a run without influencing it.
//
// Extraction runs on several goroutines, so OnClipExtracted may be called
// concurrently. OnStage and OnProgress come from the goroutine calling Run.
type Observer interface {
	// OnStage is called when the pipeline reaches stage; dur is the time spent getting there
	OnStage(stage Stage, fields map[string]any, dur time.Duration)
	// OnClipExtracted is called after each survivor has been cut
	OnClipExtracted(done, total int, clip clips.Clip)
	// OnProgress forwards ffmpeg progress for the final encode
	OnProgress(p *ffmpeg.Progress)
}

type nopObserver struct{}

func (nopObserver) OnStage(Stage, map[string]any, time.Duration) {}
func (nopObserver) OnClipExtracted(int, int, clips.Clip)          {}
func (nopObserver) OnProgress(*ffmpeg.Progress)                   {}

// LogObserver reports progress through a zerolog logger
type LogObserver struct {
	logger zerolog.Logger
	// last whole percentage logged, so the encode does not flood the log
	lastPct int
}

// NewLogObserver creates an observer that logs each stage and encode progress
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{
		logger:  logger.With().Str("component", "progress").Logger(),
		lastPct: -10,
	}
}

func (o *LogObserver) OnStage(stage Stage, fields map[string]any, dur time.Duration) {
	o.logger.Info().
		Str("stage", stage.String()).
		Fields(fields).
		Dur("took", dur).
		Msg("stage complete")
}

func (o *LogObserver) OnClipExtracted(done, total int, clip clips.Clip) {
	o.logger.Info().
		Int("done", done).
		Int("total", total).
		Str("clip", clip.ID()).
		Msgf("extracted %d/%d", done, total)
}

func (o *LogObserver) OnProgress(p *ffmpeg.Progress) {
	pct := int(p.Percentage)
	if !p.Done && pct/10 == o.lastPct/10 {
		return
	}
	o.lastPct = pct
	o.logger.Info().
		Int("percent", pct).
		Str("speed", p.Speed).
		Msg("encoding")
}
