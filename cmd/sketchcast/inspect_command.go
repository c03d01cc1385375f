package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchcast/internal/report"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		atMs   float64
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [scene.json]",
		Short: "Show the state of every operation at a point in time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sc, err := ctx.loadScene(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			entries := report.Timeline(sc, atMs, cfg.Size())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderTimeline(entries, atMs))
			return nil
		},
	}

	cmd.Flags().Float64Var(&atMs, "at", 0, "Scene time in milliseconds")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the timeline as JSON")
	return cmd
}
