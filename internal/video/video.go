package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ivlev/kenburns/internal/failure"
)

// FrameSource writes raw RGBA frames in presentation order.
type FrameSource interface {
	Stream(ctx context.Context, w io.Writer) (int, error)
}

// AudioClip is one scene's narration. The clip is trimmed or padded with
// silence to exactly Duration seconds.
type AudioClip struct {
	Path     string
	Duration float64
}

type EncodeParams struct {
	Width, Height int
	FPS           int
	Codec         string
	AudioCodec    string
	Bitrate       string
	Preset        string
	Threads       int
}

type VideoEncoder interface {
	Encode(ctx context.Context, frames FrameSource, audio []AudioClip, params EncodeParams, out string) error
}

type FFmpegEncoder struct {
	// Binary defaults to "ffmpeg".
	Binary string
}

func (e *FFmpegEncoder) binary() string {
	if e.Binary == "" {
		return "ffmpeg"
	}
	return e.Binary
}

// Encode pipes frames into ffmpeg and muxes them with the concatenated
// narration. The result is written next to out and renamed into place only
// when ffmpeg succeeds.
func (e *FFmpegEncoder) Encode(ctx context.Context, frames FrameSource, audio []AudioClip, params EncodeParams, out string) error {
	if len(audio) == 0 {
		return failure.Newf(failure.Input, "encode", "no audio clips")
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return failure.New(failure.Encode, "create output dir", err)
		}
	}

	tmp := partialPath(out)
	args := BuildArgs(audio, params, tmp)
	log.WithField("stage", "encode").Debugf("ffmpeg %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.binary(), args...)
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return failure.New(failure.Encode, "stdin pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return failure.New(failure.Encode, "start ffmpeg", err)
	}

	n, streamErr := frames.Stream(ctx, stdin)
	stdin.Close()
	waitErr := cmd.Wait()

	if streamErr != nil {
		os.Remove(tmp)
		var fe *failure.Error
		if errors.As(streamErr, &fe) {
			return streamErr
		}
		return failure.New(failure.Encode, fmt.Sprintf("stream frames (%d written)", n), withTail(streamErr, stderr))
	}
	if waitErr != nil {
		os.Remove(tmp)
		return failure.New(failure.Encode, "ffmpeg", withTail(waitErr, stderr))
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return failure.New(failure.Encode, "rename output", err)
	}
	log.WithFields(log.Fields{"stage": "encode", "frames": n}).Infof("[>] encoded %s", out)
	return nil
}

// BuildArgs returns the ffmpeg command line: raw frames on stdin as input 0,
// one input per audio clip, each clip fitted to its scene and concatenated.
func BuildArgs(audio []AudioClip, p EncodeParams, out string) []string {
	frames := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", p.Width, p.Height),
		"framerate": strconv.Itoa(p.FPS),
	})

	clips := make([]*ffmpeg.Stream, 0, len(audio))
	for _, a := range audio {
		d := formatSeconds(a.Duration)
		clip := ffmpeg.Input(a.Path).Audio().
			Filter("aformat", ffmpeg.Args{}, ffmpeg.KwArgs{"sample_rates": "48000", "channel_layouts": "stereo"}).
			Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": d}).
			Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"}).
			Filter("apad", ffmpeg.Args{}, ffmpeg.KwArgs{"whole_dur": d})
		clips = append(clips, clip)
	}
	narration := clips[0]
	if len(clips) > 1 {
		narration = ffmpeg.Concat(clips, ffmpeg.KwArgs{"v": 0, "a": 1})
	}

	return ffmpeg.Output([]*ffmpeg.Stream{frames, narration}, out, outputArgs(p, out)).
		OverWriteOutput().
		GetArgs()
}

func outputArgs(p EncodeParams, out string) ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{
		"c:v":      p.Codec,
		"pix_fmt":  "yuv420p",
		"r":        strconv.Itoa(p.FPS),
		"c:a":      p.AudioCodec,
		"b:v":      p.Bitrate,
		"threads":  strconv.Itoa(p.Threads),
		"shortest": "",
	}
	// ffmpeg picks the muxer from the extension; bare names get mp4.
	if filepath.Ext(out) == "" {
		kw["f"] = "mp4"
	}
	// Hardware encoders take their own presets; only the software path
	// understands x264 preset names.
	switch p.Codec {
	case "h264_videotoolbox":
		kw["allow_sw"] = "1"
	case "h264_nvenc":
		kw["rc"] = "vbr"
	default:
		if p.Preset != "" {
			kw["preset"] = p.Preset
		}
	}
	return kw
}

func partialPath(out string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + ".partial" + ext
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}

func withTail(err error, tail *tailBuffer) error {
	msg := strings.TrimSpace(tail.String())
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
