// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/keagan/reelcut/internal/ffmpeg"
)

// MockMediaTool is a mock implementation of pipeline.MediaTool
type MockMediaTool struct {
	mock.Mock
}

func (m *MockMediaTool) ProbeVideo(ctx context.Context, filePath string) (*ffmpeg.VideoInfo, error) {
	args := m.Called(ctx, filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ffmpeg.VideoInfo), args.Error(1)
}

func (m *MockMediaTool) ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error {
	args := m.Called(ctx, input, opts)
	return args.Error(0)
}

func (m *MockMediaTool) Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error {
	args := m.Called(ctx, opts)
	return args.Error(0)
}

// WriteConcatOutput is a Run hook for Concat that creates the output file
func WriteConcatOutput(args mock.Arguments) {
	opts := args.Get(1).(ffmpeg.ConcatOptions)
	_ = os.WriteFile(opts.Output, []byte("video"), 0o644)
}

// ExtractCalls returns the ClipOptions of every ExtractClip call, in call order
func (m *MockMediaTool) ExtractCalls() []ffmpeg.ClipOptions {
	var out []ffmpeg.ClipOptions
	for _, c := range m.Calls {
		if c.Method == "ExtractClip" {
			out = append(out, c.Arguments.Get(2).(ffmpeg.ClipOptions))
		}
	}
	return out
}

// ConcatCall returns the options of the first Concat call
func (m *MockMediaTool) ConcatCall() (ffmpeg.ConcatOptions, bool) {
	for _, c := range m.Calls {
		if c.Method == "Concat" {
			return c.Arguments.Get(1).(ffmpeg.ConcatOptions), true
		}
	}
	return ffmpeg.ConcatOptions{}, false
}
