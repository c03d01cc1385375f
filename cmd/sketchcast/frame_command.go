package main

import (
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchcast/internal/export"
	"github.com/ivlev/sketchcast/internal/render"
)

func newFrameCommand(ctx *commandContext) *cobra.Command {
	var (
		atMs  float64
		width int
		out   string
		qr    bool
	)

	cmd := &cobra.Command{
		Use:   "frame [scene.json]",
		Short: "Render a single frame to a PNG file",
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

			size := cfg.Size()
			if cmd.Flags().Changed("width") {
				size = render.SizeForWidth(width)
			}

			r := render.NewRenderer(render.WithBackground(cfg.Background()))
			surface, err := r.NewSurface(size)
			if err != nil {
				return err
			}
			frame, err := r.RenderFrame(surface, sc, atMs)
			if err != nil {
				return err
			}
			for _, skipped := range frame.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "[!] %v\n", skipped)
			}

			if qr {
				if sc.Audio == "" {
					return fmt.Errorf("--qr needs a scene with an audio handle")
				}
				if err := export.StampQR(surface.Image(), sc.Audio); err != nil {
					return err
				}
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := png.Encode(f, surface.Image()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[+++] %dx%d frame at %.0fms: %s (%d shapes)\n",
				size.Width, size.Height, atMs, out, len(frame.Shapes))
			return nil
		},
	}

	cmd.Flags().Float64Var(&atMs, "at", 0, "Scene time in milliseconds")
	cmd.Flags().IntVar(&width, "width", render.ReferenceWidth, "Frame width in pixels, height follows 16:9")
	cmd.Flags().StringVarP(&out, "out", "o", "frame.png", "Output PNG path")
	cmd.Flags().BoolVar(&qr, "qr", false, "Stamp a QR code of the scene's audio handle into the corner")
	return cmd
}
