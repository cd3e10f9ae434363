package main

import (
	"github.com/scott-cotton/cli"
)

// RootCommand builds the json2tab command tree: a single command (no
// subcommands) whose flags are the contract in the CLI section.
func RootCommand() *cli.Command {
	cfg := &Config{OutDir: ".", ChunkSize: 500}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, []*cli.Opt{
		{
			Name:        "id",
			Aliases:     []string{"identifier"},
			Description: "top-level scalar key to copy into every row (repeatable)",
			Type:        cli.NamedFuncOpt(cfg.appendOpt(&cfg.Identifiers), "(key)"),
		},
		{
			Name:        "t",
			Aliases:     []string{"table"},
			Description: "select this top-level key as a table (repeatable)",
			Type:        cli.NamedFuncOpt(cfg.appendOpt(&cfg.Tables), "(key)"),
		},
		{
			Name:        "e",
			Aliases:     []string{"exclude"},
			Description: "select every top-level key except this one (repeatable)",
			Type:        cli.NamedFuncOpt(cfg.appendOpt(&cfg.Excludes), "(key)"),
		},
	}...)

	return cli.NewCommandAt(&cfg.Cmd, "json2tab").
		WithSynopsis("json2tab -f <file> [-o dir] [-t table]... [-id key]...").
		WithDescription("json2tab flattens a stream of JSON objects into one CSV per selected top-level key.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return run(cfg, cc, args)
		})
}
