package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hlspack/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configErr    error
	resolvedPath string
	configExists bool
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.resolvedPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

// configInfo reports where the loaded config came from and whether the file
// actually existed. Only meaningful after ensureConfig succeeds.
func (c *commandContext) configInfo() (string, bool) {
	return c.resolvedPath, c.configExists
}

// runConfig returns a copy of the shared config so per-command flag
// overrides cannot leak into sibling commands.
func (c *commandContext) runConfig() (config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return config.Config{}, err
	}
	return *cfg, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
