package main

import (
	"sync"

	"AINewsletter/internal/config"
	"AINewsletter/internal/history"
	"AINewsletter/internal/logging"
)

type commandContext struct {
	configFlag *string
	envFlag    *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag, envFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
	}
}

func (c *commandContext) loadEnv() error {
	if c.envFlag == nil {
		return nil
	}
	return config.LoadEnvFile(*c.envFlag)
}

func (c *commandContext) configPath() string {
	var flag string
	if c.configFlag != nil {
		flag = *c.configFlag
	}
	return config.ResolvePath(flag)
}

// ensureConfig loads and validates the configuration a send needs.
func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(c.configPath())
	})
	return c.config, c.configErr
}

// historyRepository only needs the history path, so validation is skipped.
func (c *commandContext) historyRepository() (*history.FileRepository, config.Config, error) {
	cfg, err := config.Read(c.configPath())
	if err != nil {
		return nil, config.Config{}, err
	}
	return history.NewFileRepository(cfg.History.Path, logging.Discard()), cfg, nil
}
