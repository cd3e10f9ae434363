package main

import (
	"fmt"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/hypersoph/json2tab/debug"
	"github.com/hypersoph/json2tab/internal/runner"
)

func run(cfg *Config, cc *cli.Context, args []string) error {
	if _, err := cfg.Cmd.Parse(cc, args); err != nil {
		cfg.Cmd.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if cfg.FilePath == "" {
		return fmt.Errorf("%w: -f/--filepath is required", cli.ErrUsage)
	}

	logger := debug.NewLogger(os.Stderr)

	err := runner.Run(runner.Options{
		FilePath:    cfg.FilePath,
		OutDir:      cfg.OutDir,
		ChunkSize:   cfg.ChunkSize,
		Identifiers: cfg.Identifiers,
		Tables:      cfg.Tables,
		Excludes:    cfg.Excludes,
		All:         cfg.All,
		Compress:    cfg.Compress,
		MappingFile: cfg.MappingFile,
		NoMap:       cfg.NoMap,
		Logger:      logger,
		ProgressOut: os.Stderr,
	})
	return err
}
