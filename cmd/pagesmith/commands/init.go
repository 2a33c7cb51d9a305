package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

const starterPage = `---
title: Welcome
---
# Welcome

This site was generated by pagesmith. Edit this page and run ` + "`pagesmith serve`" + `.
`

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	return RunInit(g, root.Config, i.Force)
}

// RunInit writes the default configuration to configPath and, when the
// input directory is missing, a starter index page.
func RunInit(g *Global, configPath string, force bool) error {
	if err := config.Init(configPath, force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Wrote configuration to %s\n", configPath)

	cfg := config.Default()
	cfg.Root = filepath.Dir(configPath)
	input := cfg.InputDir()
	if _, err := os.Stat(input); err == nil {
		return nil
	}
	if err := os.MkdirAll(input, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create input directory").
			WithContext("path", input).Build()
	}
	index := filepath.Join(input, "index.md")
	if err := os.WriteFile(index, []byte(starterPage), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write starter page").
			WithContext("path", index).Build()
	}
	_, _ = fmt.Fprintf(g.out(), "Created %s\n", index)
	return nil
}
