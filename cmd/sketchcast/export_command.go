package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchcast/internal/config"
	"github.com/ivlev/sketchcast/internal/export"
	"github.com/ivlev/sketchcast/internal/logger"
	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/system"
	"github.com/ivlev/sketchcast/internal/video"
)

const benchmarkLog = "benchmark.log"

type exportFlags struct {
	format  string
	fps     int
	workers int
	width   int
	quality int
	audio   string
	noAudio bool
	out     string
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export [scene.json]",
		Short: "Render a scene to an MP4 video or a PNG sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenePath, sc, err := ctx.loadScene(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyExportFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			size := cfg.Size()
			if cmd.Flags().Changed("width") {
				size = render.SizeForWidth(flags.width)
				if err := size.Validate(); err != nil {
					return err
				}
			}

			audioPath := ""
			if !flags.noAudio {
				audioPath = resolveExportAudio(cmd, cfg, flags, scenePath, sceneAudio(scenePath, sc))
			}

			var durationMs float64
			if audioPath != "" {
				fmt.Fprintf(out, "[*] Selected audio: %s\n", audioPath)
				if seconds, err := system.GetAudioDuration(audioPath); err == nil {
					durationMs = seconds * 1000
					fmt.Fprintf(out, "[*] Video length follows the audio: %.2fs\n", seconds)
				} else {
					logger.Warnf("[!] Could not read audio duration: %v", err)
				}
			}

			exporter, err := export.NewExporter(sc, export.Options{
				Size:       size,
				FPS:        cfg.Export.FPS,
				Workers:    cfg.Export.Workers,
				DurationMs: durationMs,
				Background: cfg.Background(),
				OnFrame:    progressPrinter(out),
			})
			if err != nil {
				return err
			}

			var (
				sink   export.Sink
				target string
			)
			switch cfg.Export.Format {
			case "png":
				target = flags.out
				if target == "" {
					target = system.OutputName(cfg.Export.OutputDir, scenePath, "", time.Now())
				}
				pngSink, err := export.NewPNGSink(target)
				if err != nil {
					return err
				}
				sink = pngSink

			default:
				target = flags.out
				if target == "" {
					target = system.OutputName(cfg.Export.OutputDir, scenePath, ".mp4", time.Now())
				}
				if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
					return err
				}

				encoder := cfg.Export.Encoder
				if encoder == "" || encoder == "auto" {
					encoder = system.GetBestH264Encoder()
					if encoder != "libx264" {
						fmt.Fprintf(out, "[*] Hardware acceleration detected: %s\n", encoder)
					}
				}

				videoSink, err := export.NewVideoSink(cmd.Context(), &video.FFmpegEncoder{}, video.EncodeParams{
					Width:     size.Width,
					Height:    size.Height,
					FPS:       cfg.Export.FPS,
					Encoder:   encoder,
					Quality:   cfg.Export.Quality,
					AudioPath: audioPath,
					Output:    target,
				})
				if err != nil {
					return err
				}
				sink = videoSink
			}

			fmt.Fprintf(out, "[*] Rendering %d frames at %dx%d, %d fps\n", exporter.FrameCount(), size.Width, size.Height, cfg.Export.FPS)
			stats, err := exporter.Run(cmd.Context(), sink)
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if cfg.Export.ShowStats {
				printStats(out, cfg, scenePath, stats)
			}

			fmt.Fprintf(out, "[+++] Done! Result: %s\n", target)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.format, "format", "mp4", "Output format: mp4 or png")
	f.IntVar(&flags.fps, "fps", 30, "Frames per second")
	f.IntVarP(&flags.workers, "workers", "w", 0, "Parallel render workers (0 = auto)")
	f.IntVar(&flags.width, "width", render.ReferenceWidth, "Video width in pixels, height follows 16:9")
	f.IntVarP(&flags.quality, "quality", "q", 0, "Encoder quality, CRF or q:v (0 = encoder default)")
	f.StringVarP(&flags.audio, "audio", "a", "", "Narration audio to mux (default: scene audio, then newest file in the audio directory)")
	f.BoolVar(&flags.noAudio, "no-audio", false, "Export without narration")
	f.StringVarP(&flags.out, "out", "o", "", "Output video file or PNG directory")
	return cmd
}

// applyExportFlags overrides config values with the flags set on the command line.
func applyExportFlags(cmd *cobra.Command, cfg *config.Config, flags exportFlags) {
	changed := cmd.Flags().Changed
	if changed("format") {
		cfg.Export.Format = strings.ToLower(flags.format)
	}
	if changed("fps") {
		cfg.Export.FPS = flags.fps
	}
	if changed("workers") {
		cfg.Export.Workers = flags.workers
	}
	if changed("quality") {
		cfg.Export.Quality = flags.quality
	}
}

func resolveExportAudio(cmd *cobra.Command, cfg *config.Config, flags exportFlags, scenePath, fromScene string) string {
	if flags.audio != "" {
		return flags.audio
	}
	if fromScene != "" {
		if _, err := os.Stat(fromScene); err == nil {
			return fromScene
		}
		logger.Warnf("[!] Scene audio %s not found, looking in %s", fromScene, cfg.Input.AudioDir)
	}
	latest, err := system.FindLatestAudio(cfg.Input.AudioDir)
	if err != nil {
		logger.Debugf("no narration for %s: %v", scenePath, err)
		return ""
	}
	return latest
}

func progressPrinter(out io.Writer) func(done, total int) {
	step := 0
	return func(done, total int) {
		pct := done * 100 / total
		if pct/5 != step || done == total {
			step = pct / 5
			fmt.Fprintf(out, "\r[*] Progress: %3d%% (%d/%d)", pct, done, total)
		}
	}
}

func printStats(out io.Writer, cfg *config.Config, scenePath string, stats export.Stats) {
	fmt.Fprintf(out,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering (CPU): %.2fs\n"+
			"Writing: %.2fs\n"+
			"Workers: %d\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		cfg.BuildVersion, stats.Total.Seconds(), stats.Render.Seconds(), stats.Write.Seconds(), stats.Workers, stats.EffectiveFPS(),
	)

	entry := fmt.Sprintf("[%s] Build: %s | Scene: %s | Frames: %d | Total: %.2fs | Render: %.2fs | Write: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		cfg.BuildVersion,
		filepath.Base(scenePath),
		stats.Frames,
		stats.Total.Seconds(),
		stats.Render.Seconds(),
		stats.Write.Seconds(),
		stats.EffectiveFPS(),
	)

	f, err := os.OpenFile(benchmarkLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warnf("[!] Could not open %s: %v", benchmarkLog, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		logger.Warnf("[!] Could not write %s: %v", benchmarkLog, err)
	}
}
