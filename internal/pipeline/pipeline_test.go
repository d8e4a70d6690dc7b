package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/config"
	"github.com/keagan/reelcut/internal/ffmpeg"
	"github.com/keagan/reelcut/internal/mocks"
)

const input = "capture.mp4"

type recordObserver struct {
	mu        sync.Mutex
	stages    []Stage
	extracted []int
	progress  int
}

func (o *recordObserver) OnStage(stage Stage, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stage)
}

func (o *recordObserver) OnClipExtracted(done, total int, clip clips.Clip) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extracted = append(o.extracted, clip.Index)
}

func (o *recordObserver) OnProgress(p *ffmpeg.Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress++
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Seed = 5
	cfg.WorkDir = t.TempDir()
	cfg.Output.Folder = filepath.Join(t.TempDir(), "out")
	cfg.Clip.Duration = 5
	cfg.Selection.TargetDuration = 10
	return cfg
}

func newMedia(duration time.Duration) *mocks.MockMediaTool {
	m := new(mocks.MockMediaTool)
	m.On("ProbeVideo", mock.Anything, input).Return(&ffmpeg.VideoInfo{FilePath: input, Duration: duration, HasAudio: true}, nil)
	m.On("ExtractClip", mock.Anything, input, mock.Anything).Return(nil)
	m.On("Concat", mock.Anything, mock.Anything).Run(mocks.WriteConcatOutput).Return(nil)
	return m
}

func TestRunThirtySecondsToTen(t *testing.T) {
	cfg := testConfig(t)
	media := newMedia(30 * time.Second)
	obs := &recordObserver{}

	p, err := New(zerolog.Nop(), cfg, media, WithObserver(obs))
	require.NoError(t, err)

	res, err := p.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, StagePersisted, p.Stage())
	assert.Equal(t, []Stage{StageLoaded, StagePartitioned, StageSelected, StageAssembled, StagePersisted}, obs.stages)

	require.Equal(t, 6, res.Plan.Candidates.Len())
	require.Equal(t, 2, res.Plan.Survivors.Len())
	assert.Equal(t, uint64(5), res.Seed)

	extracts := media.ExtractCalls()
	require.Len(t, extracts, 2)
	for _, opts := range extracts {
		assert.Equal(t, 5*time.Second, opts.End-opts.Start)
		assert.False(t, opts.CopyCodec)
		assert.Equal(t, "libx264", opts.Encode.VideoCodec)
	}
	assert.ElementsMatch(t, res.Plan.Survivors.Indexes(), obs.extracted)

	concat, ok := media.ConcatCall()
	require.True(t, ok)
	assert.False(t, concat.ReEncode, "clips already carry the output codec")
	assert.Empty(t, concat.Filters)
	assert.Equal(t, 10*time.Second, concat.Duration)
	require.Len(t, concat.Inputs, 2)
	for i, c := range res.Plan.Survivors.All() {
		assert.Equal(t, c.ID()+".mkv", filepath.Base(concat.Inputs[i]))
	}

	want := filepath.Join(cfg.Output.Folder, "output.mp4")
	assert.Equal(t, want, res.OutputPath)
	assert.FileExists(t, want)

	entries, err := os.ReadDir(cfg.Output.Folder)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files left in output folder")

	work, err := os.ReadDir(cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, work, "work dir not cleaned up")
}

func TestRunWritesTemporaryOutputBesideFinalPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.FileName = "reel.mkv"
	media := newMedia(30 * time.Second)

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), input)
	require.NoError(t, err)

	concat, ok := media.ConcatCall()
	require.True(t, ok)
	assert.Equal(t, filepath.Dir(res.OutputPath), filepath.Dir(concat.Output))
	assert.Equal(t, ".mkv", filepath.Ext(concat.Output))
	assert.True(t, strings.HasPrefix(filepath.Base(concat.Output), ".reelcut-"), concat.Output)
	assert.NoFileExists(t, concat.Output)
	assert.FileExists(t, filepath.Join(cfg.Output.Folder, "reel.mkv"))
}

func TestRunFlipAppliesSingleGlobalFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.FlipHorizontal = true
	media := newMedia(30 * time.Second)

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), input)
	require.NoError(t, err)

	concat, ok := media.ConcatCall()
	require.True(t, ok)
	assert.True(t, concat.ReEncode)
	assert.Equal(t, []string{"hflip"}, concat.Filters)
	media.AssertNumberOfCalls(t, "Concat", 1)
}

func TestRunCopyClipsForcesReencode(t *testing.T) {
	cfg := testConfig(t)
	cfg.FFmpeg.CopyClips = true
	media := newMedia(30 * time.Second)

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), input)
	require.NoError(t, err)

	for _, opts := range media.ExtractCalls() {
		assert.True(t, opts.CopyCodec)
	}
	concat, _ := media.ConcatCall()
	assert.True(t, concat.ReEncode)
}

func TestRunKeepsChronologicalOrderWhenExtractionFinishesOutOfOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Clip.Duration = 1
	cfg.Selection.TargetDuration = 8
	cfg.Concurrency = 8

	media := new(mocks.MockMediaTool)
	media.On("ProbeVideo", mock.Anything, input).Return(&ffmpeg.VideoInfo{Duration: 20 * time.Second}, nil)
	media.On("ExtractClip", mock.Anything, input, mock.Anything).
		Run(func(args mock.Arguments) {
			// later clips finish first
			opts := args.Get(2).(ffmpeg.ClipOptions)
			time.Sleep(time.Duration(20-opts.Start/time.Second) * time.Millisecond)
		}).
		Return(nil)
	media.On("Concat", mock.Anything, mock.Anything).Run(mocks.WriteConcatOutput).Return(nil)

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), input)
	require.NoError(t, err)

	concat, ok := media.ConcatCall()
	require.True(t, ok)
	survivors := res.Plan.Survivors.All()
	require.Len(t, concat.Inputs, len(survivors))
	for i, c := range survivors {
		assert.Equal(t, c.ID()+".mkv", filepath.Base(concat.Inputs[i]))
	}
}

func TestRunIsReproducibleForSeed(t *testing.T) {
	run := func() []string {
		cfg := testConfig(t)
		cfg.Clip = config.ClipConfig{MinDuration: 2, MaxDuration: 7}
		cfg.Selection.TargetDuration = 20
		media := newMedia(3 * time.Minute)

		p, err := New(zerolog.Nop(), cfg, media)
		require.NoError(t, err)
		_, err = p.Run(context.Background(), input)
		require.NoError(t, err)

		concat, _ := media.ConcatCall()
		names := make([]string, len(concat.Inputs))
		for i, in := range concat.Inputs {
			names[i] = filepath.Base(in)
		}
		return names
	}

	assert.Equal(t, run(), run())
}

func TestRunClockSeedWhenUnset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed = 0
	media := newMedia(30 * time.Second)

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Unix(0, 12345) }

	res, err := p.Plan(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), res.Seed)
}

func TestRunSourceUnavailable(t *testing.T) {
	cfg := testConfig(t)
	media := new(mocks.MockMediaTool)
	media.On("ProbeVideo", mock.Anything, input).Return(nil, errors.New("ffprobe failed: exit status 1"))

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), input)
	assert.ErrorIs(t, err, clips.ErrSourceUnavailable)
	assert.True(t, IsUserError(err))
	assert.Equal(t, StageIdle, p.Stage())
	media.AssertNotCalled(t, "ExtractClip", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunEmptyInputPath(t *testing.T) {
	p, err := New(zerolog.Nop(), testConfig(t), new(mocks.MockMediaTool))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "")
	assert.ErrorIs(t, err, clips.ErrSourceUnavailable)
}

func TestRunZeroDurationSource(t *testing.T) {
	cfg := testConfig(t)
	media := newMedia(0)

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), input)
	assert.ErrorIs(t, err, clips.ErrEmptySelection)
	assert.Equal(t, StageLoaded, p.Stage())
	media.AssertNotCalled(t, "Concat", mock.Anything, mock.Anything)
	assert.NoDirExists(t, cfg.Output.Folder, "no output folder for an empty selection")
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cfg := testConfig(t)
	cfg.Clip = config.ClipConfig{MinDuration: 0, MaxDuration: 5}

	_, err := New(zerolog.Nop(), cfg, new(mocks.MockMediaTool))
	assert.ErrorIs(t, err, clips.ErrInvalidConfiguration)
}

func TestRunConcatFailureLeavesNoOutput(t *testing.T) {
	cfg := testConfig(t)
	media := new(mocks.MockMediaTool)
	media.On("ProbeVideo", mock.Anything, input).Return(&ffmpeg.VideoInfo{Duration: 30 * time.Second}, nil)
	media.On("ExtractClip", mock.Anything, input, mock.Anything).Return(nil)
	media.On("Concat", mock.Anything, mock.Anything).
		Run(mocks.WriteConcatOutput).
		Return(errors.New("ffmpeg execution failed: exit status 1"))

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), input)
	assert.ErrorIs(t, err, clips.ErrOutputWrite)
	assert.Equal(t, StageSelected, p.Stage())

	entries, err := os.ReadDir(cfg.Output.Folder)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial output left behind")
}

func TestRunExtractFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	media := new(mocks.MockMediaTool)
	media.On("ProbeVideo", mock.Anything, input).Return(&ffmpeg.VideoInfo{Duration: 30 * time.Second}, nil)
	media.On("ExtractClip", mock.Anything, input, mock.Anything).Return(errors.New("boom"))

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	media.AssertNotCalled(t, "Concat", mock.Anything, mock.Anything)
}

func TestRunOutputFolderNotWritable(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Output.Folder = filepath.Join(blocker, "out")
	media := newMedia(30 * time.Second)

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), input)
	assert.ErrorIs(t, err, clips.ErrOutputWrite)
	media.AssertNotCalled(t, "ExtractClip", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	media := new(mocks.MockMediaTool)
	media.On("ProbeVideo", mock.Anything, input).Return(&ffmpeg.VideoInfo{Duration: 30 * time.Second}, nil)
	media.On("ExtractClip", mock.Anything, input, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(context.Canceled)

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)

	_, err = p.Run(ctx, input)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanDoesNotWrite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.FlipHorizontal = true
	media := newMedia(30 * time.Second)

	p, err := New(zerolog.Nop(), cfg, media)
	require.NoError(t, err)

	res, err := p.Plan(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, StageSelected, p.Stage())
	assert.Equal(t, 2, res.Plan.Survivors.Len())
	assert.Equal(t, []string{"hflip"}, res.Filters)
	assert.Empty(t, res.OutputPath)
	media.AssertNotCalled(t, "ExtractClip", mock.Anything, mock.Anything, mock.Anything)
	media.AssertNotCalled(t, "Concat", mock.Anything, mock.Anything)
}

func TestPipelineRunsOnce(t *testing.T) {
	p, err := New(zerolog.Nop(), testConfig(t), newMedia(30*time.Second))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), input)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), input)
	assert.Error(t, err)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "idle", StageIdle.String())
	assert.Equal(t, "persisted", StagePersisted.String())
	assert.Equal(t, "unknown", Stage(42).String())
}
