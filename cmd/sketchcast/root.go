package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ivlev/sketchcast/internal/config"
	"github.com/ivlev/sketchcast/internal/logger"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	v := config.New()
	ctx := newCommandContext(v, &configFlag)

	rootCmd := &cobra.Command{
		Use:           "sketchcast",
		Short:         "Render and play hand-drawn whiteboard scenes",
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return logger.Init(cfg.Log.Level, cfg.Log.Format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path (default: ./sketchcast.yaml if present)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text, json, auto")
	bindFlag(v, "log.level", rootCmd, "log-level")
	bindFlag(v, "log.format", rootCmd, "log-format")

	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newFrameCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}

func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(name)); err != nil {
		panic(err)
	}
}
