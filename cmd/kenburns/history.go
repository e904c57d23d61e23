package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ivlev/kenburns/internal/history"
)

func newHistoryCommand(opts *options) *cobra.Command {
	var (
		path  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No renders recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Status,
					strconv.Itoa(r.Scenes),
					fmt.Sprintf("%.2fs", r.Duration),
					r.Output,
					r.PublicURL,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Started", "Status", "Scenes", "Duration", "Output", "URL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "history", opts.cfg.HistoryPath, "Render history database")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
