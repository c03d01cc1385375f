package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ivlev/sketchcast/internal/config"
	"github.com/ivlev/sketchcast/internal/scene"
	"github.com/ivlev/sketchcast/internal/system"
)

type commandContext struct {
	viper      *viper.Viper
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(v *viper.Viper, configFlag *string) *commandContext {
	return &commandContext{viper: v, configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(c.viper, path)
		if err != nil {
			c.configErr = err
			return
		}
		cfg.BuildVersion = buildVersion
		c.config = cfg
	})
	return c.config, c.configErr
}

// loadScene reads the scene named by args, or the newest scene file in the
// configured scene directory.
func (c *commandContext) loadScene(cmd *cobra.Command, args []string) (string, *scene.Scene, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", nil, err
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		latest, err := system.FindLatestScene(cfg.Input.SceneDir)
		if err != nil {
			return "", nil, fmt.Errorf("%w. Put a scene into %s/", err, cfg.Input.SceneDir)
		}
		path = latest
		fmt.Fprintf(cmd.OutOrStdout(), "[*] Selected scene: %s\n", path)
	}

	sc, err := scene.ReadScene(path)
	if err != nil {
		return path, nil, err
	}
	return path, sc, nil
}

// sceneAudio resolves the narration referenced by the scene relative to the
// scene file. Remote handles are left to the caller.
func sceneAudio(scenePath string, sc *scene.Scene) string {
	if sc.Audio == "" || strings.Contains(sc.Audio, "://") {
		return ""
	}
	if filepath.IsAbs(sc.Audio) {
		return sc.Audio
	}
	return filepath.Join(filepath.Dir(scenePath), sc.Audio)
}
