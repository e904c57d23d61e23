package main

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ivlev/kenburns/internal/config"
	"github.com/ivlev/kenburns/internal/failure"
)

type options struct {
	configPath string
	verbose    bool
	aspect     string
	images     string
	audios     string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	return buildRootCommand(&options{cfg: config.Default()})
}

func buildRootCommand(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kenburns",
		Short:         "Render narrated Ken Burns videos from stills and audio clips",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(newRenderCommand(opts))
	rootCmd.AddCommand(newPlanCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	return rootCmd
}

// bindRenderFlags registers the settings shared by render and plan. Defaults
// come from config.Default so help output shows the real values.
func bindRenderFlags(fs *pflag.FlagSet, opts *options) {
	c := opts.cfg
	fs.StringVar(&opts.images, "images", "", "Comma separated image URLs or paths (env IMAGES)")
	fs.StringVar(&opts.audios, "audios", "", "Comma separated narration URLs or paths, one per scene (env AUDIOS)")
	fs.StringVarP(&c.OutputVideo, "output", "o", c.OutputVideo, "Local output video")
	fs.StringVar(&c.OutputBucket, "bucket", c.OutputBucket, "Bucket to publish to (env OUTPUT_BUCKET)")
	fs.StringVar(&c.OutputFilename, "key", c.OutputFilename, "Object name in the bucket (env OUTPUT_FILENAME)")
	fs.StringVar(&c.Provider, "provider", c.Provider, "Publish provider: gcs, s3 (env PUBLISH_PROVIDER)")
	fs.StringVar(&c.Region, "region", c.Region, "S3 region (env AWS_REGION)")
	fs.StringVar(&c.WorkDir, "work-dir", c.WorkDir, "Directory for downloaded assets (default: temporary)")
	fs.IntVar(&c.Width, "width", c.Width, "Frame width")
	fs.IntVar(&c.Height, "height", c.Height, "Frame height")
	fs.StringVar(&opts.aspect, "aspect", "", "Frame preset: 9:16, 16:9, 4:5 (overrides width/height)")
	fs.IntVar(&c.FPS, "fps", c.FPS, "Frames per second")
	fs.IntVar(&c.Workers, "workers", c.Workers, "Parallel fetch and render workers (env WORKERS)")
	fs.IntVar(&c.FetchRetries, "retries", c.FetchRetries, "Download retries (env FETCH_RETRIES)")
	fs.Float64Var(&c.FadeDuration, "fade", c.FadeDuration, "Crossfade length in seconds")
	fs.Float64Var(&c.BaseZoom, "zoom", c.BaseZoom, "Zoom ratio of the first image in a scene")
	fs.Float64Var(&c.ZoomIncrement, "zoom-increment", c.ZoomIncrement, "Extra zoom for the second image")
	fs.StringVar(&c.SinglePolicy, "single", c.SinglePolicy, "Single image scenes: stretch, pace")
	fs.StringVar(&c.VideoEncoder, "codec", c.VideoEncoder, "Video encoder, or auto to detect hardware encoders")
	fs.StringVar(&c.AudioCodec, "audio-codec", c.AudioCodec, "Audio encoder")
	fs.StringVar(&c.Bitrate, "bitrate", c.Bitrate, "Video bitrate")
	fs.StringVar(&c.Preset, "preset", c.Preset, "x264 preset")
	fs.IntVar(&c.Threads, "threads", c.Threads, "Encoder threads")
	fs.StringVar(&c.HistoryPath, "history", c.HistoryPath, "Render history database, empty to disable")
	fs.BoolVar(&c.ShowStats, "stats", c.ShowStats, "Print a performance report")
}

// resolveConfig layers defaults, the config file, the environment and the
// flags the user actually set, in that order.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	if opts.verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if opts.configPath != "" {
		if err := config.LoadFile(cfg, opts.configPath); err != nil {
			return nil, failure.New(failure.Input, "config", err)
		}
	}
	if err := config.LoadEnv(cfg); err != nil {
		return nil, failure.New(failure.Input, "env", err)
	}

	flagged := opts.cfg
	cmd.Flags().Visit(func(f *pflag.Flag) {
		applyFlag(cfg, flagged, opts, f.Name)
	})
	if opts.aspect != "" {
		w, h, err := aspectSize(opts.aspect)
		if err != nil {
			return nil, failure.New(failure.Input, "aspect", err)
		}
		cfg.Width, cfg.Height = w, h
	}
	cfg.BuildVersion = buildVersion

	if err := cfg.Validate(); err != nil {
		return nil, failure.New(failure.Input, "config", err)
	}
	return cfg, nil
}

func applyFlag(cfg, flagged *config.Config, opts *options, name string) {
	switch name {
	case "images":
		cfg.ImageURLs = config.SplitList(opts.images)
	case "audios":
		cfg.AudioURLs = config.SplitList(opts.audios)
	case "output":
		cfg.OutputVideo = flagged.OutputVideo
	case "bucket":
		cfg.OutputBucket = flagged.OutputBucket
	case "key":
		cfg.OutputFilename = flagged.OutputFilename
	case "provider":
		cfg.Provider = strings.ToLower(flagged.Provider)
	case "region":
		cfg.Region = flagged.Region
	case "work-dir":
		cfg.WorkDir = flagged.WorkDir
	case "width":
		cfg.Width = flagged.Width
	case "height":
		cfg.Height = flagged.Height
	case "fps":
		cfg.FPS = flagged.FPS
	case "workers":
		cfg.Workers = flagged.Workers
	case "retries":
		cfg.FetchRetries = flagged.FetchRetries
	case "fade":
		cfg.FadeDuration = flagged.FadeDuration
	case "zoom":
		cfg.BaseZoom = flagged.BaseZoom
	case "zoom-increment":
		cfg.ZoomIncrement = flagged.ZoomIncrement
	case "single":
		cfg.SinglePolicy = flagged.SinglePolicy
	case "codec":
		cfg.VideoEncoder = flagged.VideoEncoder
	case "audio-codec":
		cfg.AudioCodec = flagged.AudioCodec
	case "bitrate":
		cfg.Bitrate = flagged.Bitrate
	case "preset":
		cfg.Preset = flagged.Preset
	case "threads":
		cfg.Threads = flagged.Threads
	case "history":
		cfg.HistoryPath = flagged.HistoryPath
	case "stats":
		cfg.ShowStats = flagged.ShowStats
	}
}

func aspectSize(aspect string) (int, int, error) {
	switch aspect {
	case "9:16":
		return 1080, 1920, nil
	case "16:9":
		return 1920, 1080, nil
	case "4:5":
		return 1080, 1350, nil
	}
	return 0, 0, fmt.Errorf("unknown aspect %q", aspect)
}
