package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep/speaker"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ivlev/sketchcast/internal/logger"
	"github.com/ivlev/sketchcast/internal/playback"
	"github.com/ivlev/sketchcast/internal/system"
	"github.com/ivlev/sketchcast/internal/tui"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var (
		audioFlag string
		noAudio   bool
		logFile   string
	)

	cmd := &cobra.Command{
		Use:   "play [scene.json]",
		Short: "Play a scene in the terminal, synchronised to its narration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return errors.New("play needs an interactive terminal, use export instead")
			}

			scenePath, sc, err := ctx.loadScene(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// The terminal belongs to the player until it exits
			logOut := io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err != nil {
					return err
				}
				defer f.Close()
				logOut = f
			}
			logger.SetOutput(logOut)
			defer logger.SetOutput(os.Stderr)

			opts := tui.Options{
				Skip:       cfg.Player.Skip,
				Tick:       cfg.Player.Tick,
				Background: cfg.Background(),
				Title:      sc.Title,
			}

			if !noAudio {
				audioPath := audioFlag
				if audioPath == "" {
					audioPath = sceneAudio(scenePath, sc)
				}
				if audioPath == "" {
					audioPath, _ = system.FindLatestWAV(cfg.Input.AudioDir)
				}
				if audioPath != "" {
					src, closer, err := startAudio(audioPath)
					if err != nil {
						logger.Warnf("[!] Playing without audio: %v", err)
					} else {
						defer closer.Close()
						defer speaker.Close()
						opts.Audio = src
					}
				}
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("terminal: %w", err)
			}
			defer screen.Fini()

			player, err := tui.NewPlayer(screen, sc, opts)
			if err != nil {
				return err
			}
			return player.Run()
		},
	}

	cmd.Flags().StringVarP(&audioFlag, "audio", "a", "", "WAV narration (default: scene audio, then newest WAV in the audio directory)")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Play on the wall clock without narration")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Append logs to this file while the player runs")
	return cmd
}

// startAudio opens the narration and hands it to the speaker paused; the
// player's controller decides when it runs.
func startAudio(path string) (*playback.StreamSource, io.Closer, error) {
	src, format, closer, err := playback.OpenWAV(path, playback.WithLock(speaker.Lock, speaker.Unlock))
	if err != nil {
		return nil, nil, err
	}
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("speaker: %w", err)
	}
	speaker.Play(src.Streamer())
	return src, closer, nil
}
