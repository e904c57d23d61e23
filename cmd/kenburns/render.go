package main

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ivlev/kenburns/internal/engine"
	"github.com/ivlev/kenburns/internal/failure"
	"github.com/ivlev/kenburns/internal/fetch"
	"github.com/ivlev/kenburns/internal/history"
	"github.com/ivlev/kenburns/internal/plan"
	"github.com/ivlev/kenburns/internal/system"
	"github.com/ivlev/kenburns/internal/video"
)

func newRenderCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch assets, render the timeline and publish the video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			system.InitResourceLimits()

			project := engine.NewProject(cfg, fetch.New("", cfg.FetchRetries), &video.FFmpegEncoder{})
			if cfg.HistoryPath != "" {
				store, err := history.Open(cfg.HistoryPath)
				if err != nil {
					log.Warnf("[!] render history disabled: %v", err)
				} else {
					defer store.Close()
					project.History = store
				}
			}

			res, err := project.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+++] Success! %s (%d scenes, %.2fs)\n", res.Output, res.Scenes, res.Duration)
			return nil
		},
	}
	bindRenderFlags(cmd.Flags(), opts)
	return cmd
}

func newPlanCommand(opts *options) *cobra.Command {
	var (
		out   string
		check bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Write the scene timing plan as YAML without rendering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			project := engine.NewProject(cfg, fetch.New("", cfg.FetchRetries), nil)
			p, err := project.Plan(cmd.Context())
			if err != nil {
				return err
			}
			if check {
				return checkPlan(cmd, out, p)
			}
			if err := plan.Write(p, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+++] Plan saved: %s (%d scenes, %d frames)\n", out, len(p.Scenes), p.Frames)
			return nil
		},
	}
	bindRenderFlags(cmd.Flags(), opts)
	cmd.Flags().StringVar(&out, "plan-out", "plan.yaml", "Where to write the plan")
	cmd.Flags().BoolVar(&check, "check", false, "Compare the saved plan with the inputs instead of writing it")
	return cmd
}

// checkPlan fails when the plan saved at path no longer matches current.
func checkPlan(cmd *cobra.Command, path string, current *plan.Plan) error {
	saved, err := plan.Read(path)
	if err != nil {
		return failure.New(failure.Input, "read plan", err)
	}
	if diff := plan.Diff(saved, current); len(diff) > 0 {
		return failure.Newf(failure.Input, "check plan", "%s is stale: %s", path, strings.Join(diff, "; "))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[+++] Plan up to date: %s\n", path)
	return nil
}
