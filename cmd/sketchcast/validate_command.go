package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/scene"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [scene.json]",
		Short: "Check a scene script for structural problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, sc, err := ctx.loadScene(cmd, args)
			if err != nil {
				var verr *scene.ValidationError
				if errors.As(err, &verr) {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "[!] %s is not a valid scene:\n", path)
					for _, p := range verr.Problems {
						fmt.Fprintf(out, "    - %s\n", p)
					}
				}
				return err
			}

			out := cmd.OutOrStdout()
			end := sc.EndMs()
			fmt.Fprintf(out, "[+++] %s: %d operations, drawing ends at %.0fms\n", path, len(sc.Operations), end)

			// Geometry is checked per frame, so report what would be skipped.
			frame := render.Compose(sc, end, render.SizeForWidth(render.ReferenceWidth))
			for _, skipped := range frame.Skipped {
				fmt.Fprintf(out, "[!] %v\n", skipped)
			}
			for _, w := range frame.Warnings {
				fmt.Fprintf(out, "[!] %s\n", w)
			}
			return nil
		},
	}
}
