package main

import (
	"github.com/scott-cotton/cli"
)

// Config holds every flag json2tab accepts, populated by cli.StructOpts
// for the scalar fields and by hand-built Opts (in RootCommand) for the repeatable
// ones cli's struct tags can't express.
type Config struct {
	Cmd *cli.Command

	FilePath    string `cli:"name=f aliases=filepath desc='input .json or .json.gz file'"`
	OutDir      string `cli:"name=o aliases=out desc='output directory' default=."`
	ChunkSize   int    `cli:"name=cs aliases=chunk-size desc='rows buffered per table before flushing'"`
	All         bool   `cli:"name=a aliases=all desc='select every top-level key as a table'"`
	Compress    bool   `cli:"name=c aliases=compress desc='write gzip-compressed CSV output'"`
	MappingFile string `cli:"name=m aliases=mapping-file desc='reuse a previously saved mapping document'"`
	NoMap       bool   `cli:"name=nm aliases=no-map desc='suppress writing the mapping document'"`

	Identifiers []string
	Tables      []string
	Excludes    []string
}

func (cfg *Config) appendOpt(dst *[]string) cli.FuncOpt {
	return cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
		*dst = append(*dst, v)
		return v, nil
	})
}
