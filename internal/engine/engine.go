package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/kenburns/internal/config"
	"github.com/ivlev/kenburns/internal/failure"
	"github.com/ivlev/kenburns/internal/history"
	"github.com/ivlev/kenburns/internal/plan"
	"github.com/ivlev/kenburns/internal/publish"
	"github.com/ivlev/kenburns/internal/renderer"
	"github.com/ivlev/kenburns/internal/source"
	"github.com/ivlev/kenburns/internal/system"
	"github.com/ivlev/kenburns/internal/timeline"
	"github.com/ivlev/kenburns/internal/video"
)

type Fetcher interface {
	Fetch(ctx context.Context, rawURL, name string) (string, error)
}

type Project struct {
	Config  *config.Config
	Fetcher Fetcher
	Encoder video.VideoEncoder

	// Optional collaborators. Nil fields fall back to the real implementations.
	NewPublisher func(ctx context.Context, provider, region string) (publish.Publisher, error)
	ProbeAudio   func(ctx context.Context, path string) (*source.Audio, error)
	LoadImage    func(path string, width, height int) (*source.Image, error)
	History      *history.Store
	Stdout       io.Writer
}

// Result summarizes a finished render.
type Result struct {
	Output    string
	PublicURL string
	Scenes    int
	Frames    int
	Duration  float64
}

func NewProject(cfg *config.Config, f Fetcher, enc video.VideoEncoder) *Project {
	return &Project{
		Config:       cfg,
		Fetcher:      f,
		Encoder:      enc,
		NewPublisher: publish.New,
		ProbeAudio:   source.DecodeAudio,
		LoadImage:    source.DecodeImageFile,
		Stdout:       os.Stdout,
	}
}

// Run renders the configured scenes to Config.OutputVideo and publishes the
// result when a bucket is set. Publish failures are logged, not returned.
func (p *Project) Run(ctx context.Context) (res *Result, err error) {
	startTime := time.Now()
	cfg := p.Config
	if err := p.validateInputs(); err != nil {
		return nil, err
	}

	if p.History != nil {
		id, herr := p.History.Begin(ctx, cfg.OutputVideo, len(cfg.AudioURLs))
		if herr != nil {
			log.Warnf("[!] render history unavailable: %v", herr)
		} else {
			defer func() {
				var dur float64
				var url string
				if res != nil {
					dur, url = res.Duration, res.PublicURL
				}
				if ferr := p.History.Finish(context.Background(), id, dur, url, err); ferr != nil {
					log.Warnf("[!] cannot record render: %v", ferr)
				}
			}()
		}
	}

	log.Info("--- [KEN BURNS RENDER] ---")
	log.Infof("[*] Scenes: %d | Images: %d", len(cfg.AudioURLs), len(cfg.ImageURLs))
	log.Infof("[*] Resolution: %dx%d @ %d FPS | Fade: %.2fs | Zoom: %.2f/+%.2f",
		cfg.Width, cfg.Height, cfg.FPS, cfg.FadeDuration, cfg.BaseZoom, cfg.ZoomIncrement)

	workDir, cleanup, err := p.workDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	loadStart := time.Now()
	audios, images, err := p.loadAssets(ctx, workDir, true)
	if err != nil {
		return nil, err
	}
	loadTime := time.Since(loadStart)

	tl, err := p.compose(audios, images)
	if err != nil {
		return nil, err
	}

	codec := cfg.VideoEncoder
	if codec == "auto" {
		codec = system.GetBestH264Encoder()
		log.Infof("[*] Encoder: %s", codec)
	}

	stream := &renderer.FrameStream{
		Timeline: tl,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FPS:      cfg.FPS,
		Workers:  system.FrameWorkers(cfg.Workers, cfg.Width, cfg.Height),
		Progress: progressLogger(cfg.FPS),
	}
	clips := make([]video.AudioClip, 0, len(tl.Scenes))
	for _, t := range tl.AudioTracks() {
		clips = append(clips, video.AudioClip{Path: t.Asset.Path, Duration: t.Duration})
	}
	params := video.EncodeParams{
		Width:      cfg.Width,
		Height:     cfg.Height,
		FPS:        cfg.FPS,
		Codec:      codec,
		AudioCodec: cfg.AudioCodec,
		Bitrate:    cfg.Bitrate,
		Preset:     cfg.Preset,
		Threads:    cfg.Threads,
	}

	log.Infof("[*] Rendering %d frames (%.2fs)...", stream.FrameCount(), tl.Duration())
	encodeStart := time.Now()
	if err := p.Encoder.Encode(ctx, stream, clips, params, cfg.OutputVideo); err != nil {
		return nil, err
	}
	encodeTime := time.Since(encodeStart)

	res = &Result{
		Output:   cfg.OutputVideo,
		Scenes:   len(tl.Scenes),
		Frames:   stream.FrameCount(),
		Duration: tl.Duration(),
	}
	res.PublicURL = p.publish(ctx)

	if cfg.ShowStats {
		totalTime := time.Since(startTime)
		log.Infof("--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Fetch+Decode: %.2fs\n"+
			"Render+Encode: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Host: %s\n"+
			"----------------------------",
			cfg.BuildVersion, totalTime.Seconds(), loadTime.Seconds(), encodeTime.Seconds(),
			float64(res.Frames)/encodeTime.Seconds(), system.ReadHostStats())
	}

	log.Infof("[+++] Done: %s", cfg.OutputVideo)
	return res, nil
}

// Plan builds the timeline without decoding images or encoding anything.
func (p *Project) Plan(ctx context.Context) (*plan.Plan, error) {
	if err := p.validateInputs(); err != nil {
		return nil, err
	}
	workDir, cleanup, err := p.workDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	audios, images, err := p.loadAssets(ctx, workDir, false)
	if err != nil {
		return nil, err
	}
	tl, err := p.compose(audios, images)
	if err != nil {
		return nil, err
	}
	return plan.FromTimeline(tl, p.Config.Width, p.Config.Height, p.Config.FPS), nil
}

func (p *Project) validateInputs() error {
	cfg := p.Config
	if err := p.expandImageDirs(); err != nil {
		return err
	}
	if len(cfg.AudioURLs) == 0 || len(cfg.ImageURLs) == 0 {
		return failure.Newf(failure.Input, "inputs", "IMAGES and AUDIOS must both be set")
	}
	for i := range cfg.AudioURLs {
		if _, n := timeline.ImagesFor(i, len(cfg.ImageURLs)); n == 0 {
			return failure.Newf(failure.Input, "inputs",
				"scene %d has no image: %d images for %d scenes", i+1, len(cfg.ImageURLs), len(cfg.AudioURLs))
		}
	}
	if used := len(cfg.AudioURLs) * timeline.ImagesPerScene; len(cfg.ImageURLs) > used {
		log.Warnf("[!] %d images are not used by any scene", len(cfg.ImageURLs)-used)
	}
	return nil
}

// expandImageDirs replaces local directories in the image list with the
// stills they contain, in name order.
func (p *Project) expandImageDirs() error {
	var out []string
	for _, u := range p.Config.ImageURLs {
		st, err := os.Stat(u)
		if err != nil || !st.IsDir() {
			out = append(out, u)
			continue
		}
		files, err := source.ListImages(u)
		if err != nil {
			return failure.New(failure.Input, "list images", err)
		}
		log.WithField("url", u).Infof("[*] %d images in directory", len(files))
		out = append(out, files...)
	}
	p.Config.ImageURLs = out
	return nil
}

func (p *Project) workDir() (string, func(), error) {
	if p.Config.WorkDir != "" {
		if err := os.MkdirAll(p.Config.WorkDir, 0755); err != nil {
			return "", nil, failure.New(failure.Input, "work dir", err)
		}
		return p.Config.WorkDir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "kenburns_")
	if err != nil {
		return "", nil, failure.New(failure.Input, "work dir", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// loadAssets fetches and decodes every clip and still concurrently. Results
// keep input order. Without decodeImages the stills carry only their URL.
func (p *Project) loadAssets(ctx context.Context, workDir string, decodeImages bool) ([]*source.Audio, []*source.Image, error) {
	cfg := p.Config
	audios := make([]*source.Audio, len(cfg.AudioURLs))
	images := make([]*source.Image, len(cfg.ImageURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))

	for i, u := range cfg.AudioURLs {
		i, u := i, u
		g.Go(func() error {
			path, err := p.Fetcher.Fetch(gctx, u, filepath.Join(workDir, fmt.Sprintf("scene_%d", i)))
			if err != nil {
				return err
			}
			a, err := p.ProbeAudio(gctx, path)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"scene": i + 1, "url": u}).Infof("[>] Audio ready: %.2fs", a.Duration)
			audios[i] = a
			return nil
		})
	}
	for i, u := range cfg.ImageURLs {
		i, u := i, u
		if !decodeImages {
			images[i] = &source.Image{Name: u}
			continue
		}
		g.Go(func() error {
			path, err := p.Fetcher.Fetch(gctx, u, filepath.Join(workDir, fmt.Sprintf("img_%d", i)))
			if err != nil {
				return err
			}
			img, err := p.LoadImage(path, cfg.Width, cfg.Height)
			if err != nil {
				return err
			}
			img.Name = u
			log.WithField("url", u).Debugf("[>] Image %d ready", i+1)
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return audios, images, nil
}

func (p *Project) compose(audios []*source.Audio, images []*source.Image) (*timeline.Timeline, error) {
	builder := timeline.NewSceneBuilder(p.Config.SceneParams())
	scenes := make([]timeline.Scene, 0, len(audios))
	for i, a := range audios {
		first, n := timeline.ImagesFor(i, len(images))
		scene, err := builder.Build(i, timeline.AudioTrack{Asset: a, Duration: a.Duration}, images[first:first+n])
		if err != nil {
			return nil, err
		}
		log.WithField("scene", i+1).Debugf("[*] %d layers over %.2fs", len(scene.Layers), scene.Duration)
		scenes = append(scenes, scene)
	}
	return timeline.Compose(scenes)
}

// publish uploads the output when a bucket is configured and returns the
// public URL, or "" when nothing was published.
func (p *Project) publish(ctx context.Context) string {
	cfg := p.Config
	if cfg.OutputBucket == "" {
		log.Info("[*] No output bucket set, skipping upload")
		return ""
	}
	pub, err := p.NewPublisher(ctx, cfg.Provider, cfg.Region)
	if err != nil {
		log.WithField("stage", "publish").Errorf("[!] %v", err)
		return ""
	}
	url, err := pub.Publish(ctx, cfg.OutputVideo, cfg.OutputBucket, cfg.OutputFilename)
	if err != nil {
		log.WithField("stage", "publish").Errorf("[!] %v", err)
		return ""
	}
	fmt.Fprintf(p.Stdout, "PUBLIC_URL=%s\n", url)

	qr := publish.QRPath(cfg.OutputVideo)
	if err := publish.WriteQR(url, qr); err != nil {
		log.WithField("stage", "publish").Warnf("[!] %v", err)
	} else {
		log.Infof("[*] QR code: %s", qr)
	}
	return url
}

func progressLogger(fps int) func(done, total int) {
	last := -10
	return func(done, total int) {
		if total == 0 {
			return
		}
		pct := done * 100 / total
		if pct/10 == last/10 && done != total {
			return
		}
		last = pct
		log.WithField("stage", "render").Infof("[>] %d/%d frames (%.1fs)", done, total, float64(done)/float64(fps))
	}
}
