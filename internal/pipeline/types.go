package pipeline

import (
	"context"
	"time"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/ffmpeg"
)

// Stage is a step of the highlight pipeline. Stages only move forward.
type Stage int

const (
	StageIdle Stage = iota
	StageLoaded
	StagePartitioned
	StageSelected
	StageAssembled
	StagePersisted
)

var stageNames = [...]string{"idle", "loaded", "partitioned", "selected", "assembled", "persisted"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// MediaTool is the video collaborator: probing, cutting and joining files.
// *ffmpeg.Executor implements it.
type MediaTool interface {
	ProbeVideo(ctx context.Context, filePath string) (*ffmpeg.VideoInfo, error)
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// Result describes a finished (or planned) run
type Result struct {
	Input      string
	Source     *ffmpeg.VideoInfo
	Seed       uint64
	Plan       *clips.Plan
	OutputPath string
	Filters    []string
	Elapsed    time.Duration
}
