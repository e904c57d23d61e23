package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ivlev/kenburns/internal/config"
	"github.com/ivlev/kenburns/internal/failure"
	"github.com/ivlev/kenburns/internal/fetch"
	"github.com/ivlev/kenburns/internal/history"
	"github.com/ivlev/kenburns/internal/publish"
	"github.com/ivlev/kenburns/internal/source"
	"github.com/ivlev/kenburns/internal/video"
)

type fakeEncoder struct {
	frames int
	bytes  int
	clips  []video.AudioClip
	params video.EncodeParams
	err    error
}

func (e *fakeEncoder) Encode(ctx context.Context, frames video.FrameSource, audio []video.AudioClip, params video.EncodeParams, out string) error {
	if e.err != nil {
		return e.err
	}
	var buf bytes.Buffer
	n, err := frames.Stream(ctx, &buf)
	if err != nil {
		return err
	}
	e.frames, e.bytes, e.clips, e.params = n, buf.Len(), audio, params
	return os.WriteFile(out, []byte("mp4"), 0644)
}

type fakePublisher struct {
	mu  sync.Mutex
	key string
	err error
}

func (p *fakePublisher) Publish(ctx context.Context, localPath, bucket, key string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.mu.Lock()
	p.key = key
	p.mu.Unlock()
	return publish.GCSURL(bucket, key), nil
}

func writePNG(t *testing.T, dir, name string, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeAudio(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// testProject wires a project over local files. durations maps audio file
// names to their probed length.
func testProject(t *testing.T, images, audios []string, durations map[string]float64) (*Project, *fakeEncoder) {
	t.Helper()
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.FPS = 8, 8, 10
	cfg.Workers = 2
	cfg.ImageURLs, cfg.AudioURLs = images, audios
	cfg.OutputVideo = filepath.Join(t.TempDir(), "out.mp4")
	cfg.OutputBucket = ""

	enc := &fakeEncoder{}
	p := NewProject(cfg, fetch.New("", 0), enc)
	p.ProbeAudio = func(ctx context.Context, path string) (*source.Audio, error) {
		d, ok := durations[filepath.Base(path)]
		if !ok {
			return nil, failure.Newf(failure.Decode, "probe audio", "unknown clip %s", path)
		}
		return &source.Audio{Path: path, Duration: d}, nil
	}
	p.Stdout = io.Discard
	return p, enc
}

func TestRunComposesScenes(t *testing.T) {
	dir := t.TempDir()
	images := []string{
		writePNG(t, dir, "a.png", color.RGBA{R: 255, A: 255}),
		writePNG(t, dir, "b.png", color.RGBA{G: 255, A: 255}),
		writePNG(t, dir, "c.png", color.RGBA{B: 255, A: 255}),
	}
	audios := []string{writeAudio(t, dir, "s1.mp3"), writeAudio(t, dir, "s2.mp3")}
	p, enc := testProject(t, images, audios, map[string]float64{"s1.mp3": 4.0, "s2.mp3": 5.0})

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Scenes != 2 || res.Duration != 9.0 || res.Frames != 90 {
		t.Errorf("result = %+v", res)
	}
	if enc.frames != 90 || enc.bytes != 90*8*8*4 {
		t.Errorf("encoder got %d frames, %d bytes", enc.frames, enc.bytes)
	}
	if len(enc.clips) != 2 || enc.clips[0].Duration != 4.0 || enc.clips[1].Duration != 5.0 {
		t.Errorf("clips = %+v", enc.clips)
	}
	if enc.params.Codec != "libx264" || enc.params.Bitrate != "8000k" || enc.params.FPS != 10 {
		t.Errorf("params = %+v", enc.params)
	}
	if res.PublicURL != "" {
		t.Errorf("nothing should be published without a bucket")
	}
}

func TestRunExpandsImageDirectory(t *testing.T) {
	dir := t.TempDir()
	stills := filepath.Join(dir, "stills")
	os.Mkdir(stills, 0755)
	writePNG(t, stills, "02.png", color.RGBA{G: 255, A: 255})
	writePNG(t, stills, "01.png", color.RGBA{R: 255, A: 255})

	p, _ := testProject(t, []string{stills}, []string{writeAudio(t, dir, "s1.mp3")}, map[string]float64{"s1.mp3": 2})
	pl, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	layers := pl.Scenes[0].Layers
	if len(layers) != 2 || filepath.Base(layers[0].Input) != "01.png" || filepath.Base(layers[1].Input) != "02.png" {
		t.Errorf("layers = %+v", layers)
	}
}

func TestRunInputErrors(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "a.png", color.RGBA{A: 255})
	clip := writeAudio(t, dir, "s1.mp3")

	tests := []struct {
		name           string
		images, audios []string
	}{
		{"no images", nil, []string{clip}},
		{"no audio", []string{img}, nil},
		{"scene without image", []string{img, img}, []string{clip, clip}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, enc := testProject(t, tt.images, tt.audios, map[string]float64{"s1.mp3": 2})
			_, err := p.Run(context.Background())
			if !failure.IsKind(err, failure.Input) {
				t.Errorf("expected input error, got %v", err)
			}
			if enc.frames != 0 {
				t.Error("encoder must not run")
			}
		})
	}
}

func TestRunFailsFastOnAssetErrors(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "a.png", color.RGBA{A: 255})
	clip := writeAudio(t, dir, "s1.mp3")
	broken := writeAudio(t, dir, "broken.png")

	tests := []struct {
		name   string
		images []string
		audios []string
		kind   failure.Kind
	}{
		{"missing image", []string{filepath.Join(dir, "none.png")}, []string{clip}, failure.Fetch},
		{"undecodable image", []string{broken}, []string{clip}, failure.Decode},
		{"unprobeable audio", []string{img}, []string{writeAudio(t, dir, "odd.mp3")}, failure.Decode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, enc := testProject(t, tt.images, tt.audios, map[string]float64{"s1.mp3": 2})
			_, err := p.Run(context.Background())
			if !failure.IsKind(err, tt.kind) {
				t.Errorf("expected %s error, got %v", tt.kind, err)
			}
			if enc.frames != 0 {
				t.Error("encoder must not run")
			}
		})
	}
}

func TestRunEncodeErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	p, enc := testProject(t,
		[]string{writePNG(t, dir, "a.png", color.RGBA{A: 255})},
		[]string{writeAudio(t, dir, "s1.mp3")},
		map[string]float64{"s1.mp3": 1})
	enc.err = failure.Newf(failure.Encode, "ffmpeg", "exit status 1")

	_, err := p.Run(context.Background())
	if !failure.IsKind(err, failure.Encode) || !failure.IsFatal(err) {
		t.Errorf("got %v", err)
	}
}

func TestRunPublishes(t *testing.T) {
	dir := t.TempDir()
	p, _ := testProject(t,
		[]string{writePNG(t, dir, "a.png", color.RGBA{A: 255})},
		[]string{writeAudio(t, dir, "s1.mp3")},
		map[string]float64{"s1.mp3": 1})
	p.Config.OutputBucket = "media"
	pub := &fakePublisher{}
	p.NewPublisher = func(ctx context.Context, provider, region string) (publish.Publisher, error) {
		return pub, nil
	}
	var stdout bytes.Buffer
	p.Stdout = &stdout

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "https://storage.googleapis.com/media/video_output.mp4"
	if res.PublicURL != want || pub.key != "video_output.mp4" {
		t.Errorf("url = %q, key = %q", res.PublicURL, pub.key)
	}
	if !strings.Contains(stdout.String(), "PUBLIC_URL="+want) {
		t.Errorf("stdout = %q", stdout.String())
	}
	if _, err := os.Stat(publish.QRPath(p.Config.OutputVideo)); err != nil {
		t.Errorf("qr code not written: %v", err)
	}
}

func TestRunPublishFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	p, _ := testProject(t,
		[]string{writePNG(t, dir, "a.png", color.RGBA{A: 255})},
		[]string{writeAudio(t, dir, "s1.mp3")},
		map[string]float64{"s1.mp3": 1})
	p.Config.OutputBucket = "media"
	p.NewPublisher = func(ctx context.Context, provider, region string) (publish.Publisher, error) {
		return &fakePublisher{err: failure.Newf(failure.Publish, "gcs upload", "denied")}, nil
	}

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("publish failure must not fail the run: %v", err)
	}
	if res.PublicURL != "" {
		t.Errorf("url = %q", res.PublicURL)
	}
	if _, err := os.Stat(p.Config.OutputVideo); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "renders.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	dir := t.TempDir()
	p, enc := testProject(t,
		[]string{writePNG(t, dir, "a.png", color.RGBA{A: 255})},
		[]string{writeAudio(t, dir, "s1.mp3")},
		map[string]float64{"s1.mp3": 1})
	p.History = store

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	enc.err = errors.New("ffmpeg crashed")
	p.Run(context.Background())

	runs, err := store.Recent(context.Background(), 10)
	if err != nil || len(runs) != 2 {
		t.Fatalf("runs = %+v, %v", runs, err)
	}
	statuses := map[string]bool{runs[0].Status: true, runs[1].Status: true}
	if !statuses[history.StatusOK] || !statuses[history.StatusFailed] {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	audios := []string{writeAudio(t, dir, "s1.mp3"), writeAudio(t, dir, "s2.mp3")}
	images := []string{"https://example.com/a.jpg", "https://example.com/b.jpg", "https://example.com/c.jpg"}
	p, enc := testProject(t, images, audios, map[string]float64{"s1.mp3": 6.0, "s2.mp3": 3.0})

	pl, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if enc.frames != 0 {
		t.Error("plan must not encode")
	}
	if pl.Duration != 9.0 || len(pl.Scenes) != 2 {
		t.Fatalf("plan = %+v", pl)
	}
	if got := pl.Scenes[0].Layers[1]; got.Input != images[1] || got.Start != 2.5 || got.End != 6.0 {
		t.Errorf("scene 1 layer 2 = %+v", got)
	}
	second := pl.Scenes[1]
	if second.Offset != 6.0 || len(second.Layers) != 1 || second.Layers[0].Input != images[2] {
		t.Errorf("scene 2 = %+v", second)
	}
}
