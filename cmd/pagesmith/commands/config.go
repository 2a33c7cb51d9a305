package commands

import (
	"git.home.luguber.info/inful/pagesmith/internal/config"
)

// ConfigCmd implements the 'config' command.
type ConfigCmd struct{}

func (c *ConfigCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = g.out().Write(data)
	return err
}
