package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/subsetgrep/subsetgrep/keyconfig"
	"github.com/subsetgrep/subsetgrep/search"
)

func newCmd_Search() *cli.Command {
	var indexDir string
	var query string
	var style string
	var offset int
	var limit int

	return &cli.Command{
		Name:        "search",
		Usage:       "Query an index directory directly, without starting the HTTP server.",
		Description: "Runs the same core used by 'serve', for scripting and local debugging.",
		Before: func(c *cli.Context) error {
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "index",
				Usage:       "path to the index directory produced by 'subsetgrep index'",
				Required:    true,
				Destination: &indexDir,
			},
			&cli.StringFlag{
				Name:        "query",
				Usage:       "the substring to search for",
				Required:    true,
				Destination: &query,
			},
			&cli.StringFlag{
				Name:        "style",
				Usage:       "strict, case-insensitive, or fuzzy",
				Value:       string(keyconfig.StyleFuzzy),
				Destination: &style,
			},
			&cli.IntFlag{
				Name:        "offset",
				Destination: &offset,
			},
			&cli.IntFlag{
				Name:        "limit",
				Value:       100,
				Destination: &limit,
			},
		},
		Action: func(c *cli.Context) error {
			engine := search.New(indexDir)
			defer engine.Close()

			lines, _, err := engine.FindLines(c.Context, query, keyconfig.SearchStyle(style))
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			page, err := engine.Page(lines, offset, limit)
			if err != nil {
				fmt.Println("(no results at this offset)")
				return nil
			}
			if len(page) == 0 {
				fmt.Println("(no matches)")
				return nil
			}
			for _, line := range page {
				fmt.Println(line)
			}
			return nil
		},
	}
}
