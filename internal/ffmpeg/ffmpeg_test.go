package ffmpeg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFilterBuilder(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.HFlip().Scale(1920, 1080).FPS(30).Build()

	expected := "hflip,scale=1920:1080,fps=30"
	if filter != expected {
		t.Errorf("expected %q, got %q", expected, filter)
	}
}

func TestFilterBuilderEmpty(t *testing.T) {
	fb := NewFilterBuilder()
	if filter := fb.Scale(0, 720).FPS(-1).Build(); filter != "" {
		t.Errorf("expected empty string, got %q", filter)
	}
	if all := fb.BuildAll(); len(all) != 0 {
		t.Errorf("expected no filters, got %v", all)
	}
}

func TestFilterBuilderFractionalFPS(t *testing.T) {
	if got := NewFilterBuilder().FPS(29.97).Build(); got != "fps=29.97" {
		t.Errorf("got %q", got)
	}
}

func TestEncodeOptionsArgs(t *testing.T) {
	got := strings.Join(EncodeOptions{}.args(), " ")
	want := "-c:v libx264 -crf 23 -preset medium -pix_fmt yuv420p"
	if got != want {
		t.Errorf("defaults: got %q, want %q", got, want)
	}

	got = strings.Join(EncodeOptions{VideoCodec: "libx265", CRF: 28, Preset: "fast"}.args(), " ")
	want = "-c:v libx265 -crf 28 -preset fast -pix_fmt yuv420p"
	if got != want {
		t.Errorf("x265: got %q, want %q", got, want)
	}

	got = strings.Join(EncodeOptions{VideoCodec: "mpeg4", CRF: 10}.args(), " ")
	if got != "-c:v mpeg4" {
		t.Errorf("non-x264 codec should not get crf/preset, got %q", got)
	}
}

func TestStreamOutputParsesProgressBlocks(t *testing.T) {
	stderr := strings.Join([]string{
		"[mp4 @ 0x1] something odd",
		"frame=30",
		"fps=29.97",
		"bitrate=1000.0kbits/s",
		"out_time_us=2500000",
		"out_time=00:00:02.500000",
		"speed=2.0x",
		"progress=continue",
		"frame=60",
		"out_time_us=10000000",
		"progress=end",
	}, "\n")

	var got []Progress
	var logs []string
	streamOutput(strings.NewReader(stderr), 5*time.Second,
		func(p *Progress) { got = append(got, *p) },
		func(line string) { logs = append(logs, line) })

	if len(got) != 2 {
		t.Fatalf("expected 2 progress blocks, got %d", len(got))
	}
	first := got[0]
	if first.Frame != 30 || first.FPS != 29.97 || first.Speed != "2.0x" || first.Time != "00:00:02.500000" {
		t.Errorf("unexpected first block: %+v", first)
	}
	if first.OutTime != 2500*time.Millisecond || first.Percentage != 50 || first.Done {
		t.Errorf("unexpected first block timing: %+v", first)
	}
	if got[1].Percentage != 100 || !got[1].Done {
		t.Errorf("second block should be done and capped at 100%%: %+v", got[1])
	}
	if len(logs) != 1 || !strings.Contains(logs[0], "something odd") {
		t.Errorf("expected the non-progress line to be logged, got %v", logs)
	}
}

func TestStreamOutputWithoutTotal(t *testing.T) {
	var got *Progress
	streamOutput(strings.NewReader("out_time_us=1000\nprogress=end\n"), 0,
		func(p *Progress) { got = p }, nil)
	if got == nil || got.Percentage != 0 || got.OutTime != time.Millisecond {
		t.Errorf("unexpected progress: %+v", got)
	}
}

func TestCreateConcatFile(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{
		filepath.Join(dir, "clip_0001.mkv"),
		filepath.Join(dir, "it's.mkv"),
	}

	path, err := createConcatFile(dir, inputs)
	if err != nil {
		t.Fatalf("createConcatFile: %v", err)
	}
	defer os.Remove(path)

	if filepath.Dir(path) != dir {
		t.Errorf("concat list written to %s, want %s", filepath.Dir(path), dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", data)
	}
	if want := "file '" + filepath.ToSlash(inputs[0]) + "'"; lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
	if !strings.Contains(lines[1], `it'\''s.mkv`) {
		t.Errorf("quote not escaped: %q", lines[1])
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"format": {"duration": "30.500000", "bit_rate": "800000"},
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 320, "height": 240, "r_frame_rate": "30/1"},
			{"codec_type": "audio", "codec_name": "aac"}
		]
	}`)

	info, err := parseProbe("in.mp4", out)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.Duration != 30500*time.Millisecond {
		t.Errorf("duration = %v", info.Duration)
	}
	if info.Width != 320 || info.Height != 240 || info.FPS != 30 || info.VideoCodec != "h264" {
		t.Errorf("video stream = %+v", info)
	}
	if !info.HasAudio || info.AudioCodec != "aac" || info.Bitrate != 800000 {
		t.Errorf("audio/bitrate = %+v", info)
	}
}

func TestParseProbeRejectsAudioOnly(t *testing.T) {
	out := []byte(`{"format": {"duration": "3.0"}, "streams": [{"codec_type": "audio"}]}`)
	if _, err := parseProbe("song.m4a", out); err == nil {
		t.Error("expected error for a file without video")
	}
}

func TestParseProbeRejectsMissingDuration(t *testing.T) {
	out := []byte(`{"format": {}, "streams": [{"codec_type": "video"}]}`)
	if _, err := parseProbe("x.mp4", out); err == nil {
		t.Error("expected error when duration is missing")
	}
}
