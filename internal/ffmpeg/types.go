package ffmpeg

import (
	"strconv"
	"time"
)

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame      int
	FPS        float64
	Bitrate    string
	Time       string
	OutTime    time.Duration
	Speed      string
	Percentage float64
	Done       bool
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args []string
	// Duration of the expected output, used to fill Progress.Percentage
	Duration        time.Duration
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultPixFmt     = "yuv420p"
)

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)

// EncodeOptions are the codec settings shared by extraction and concatenation
type EncodeOptions struct {
	VideoCodec string
	CRF        int // Quality (0-51, lower = better)
	Preset     string
}

func (o EncodeOptions) args() []string {
	codec := o.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec
	}
	args := []string{"-c:v", codec}

	// crf and preset only mean something to the x264/x265 family
	if codec == "libx264" || codec == "libx265" {
		crf := o.CRF
		if crf == 0 {
			crf = DefaultCRF
		}
		preset := o.Preset
		if preset == "" {
			preset = DefaultPreset
		}
		args = append(args, "-crf", strconv.Itoa(crf), "-preset", preset, "-pix_fmt", DefaultPixFmt)
	}
	return args
}
