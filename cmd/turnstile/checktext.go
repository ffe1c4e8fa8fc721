package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/fakacrm/turnstile/automod/setstore"

	cli "github.com/urfave/cli/v2"
)

var checkTextCmd = &cli.Command{
	Name:  "check-text",
	Usage: "reads lines of text from stdin, outputs those the content filter would delete",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "banned-words-json",
			Usage:   "path to JSON file with named sets; the 'banned-substrings' set replaces the built-in list",
			EnvVars: []string{"TURNSTILE_BANNED_WORDS_JSON", "TURNSTILE_SETS_JSON_PATH"},
		},
	},
	Action: func(cctx *cli.Context) error {
		sets := setstore.NewMemSetStore()
		if p := cctx.String("banned-words-json"); p != "" {
			if err := sets.LoadFromFileJSON(p); err != nil {
				return err
			}
		}
		filter, err := loadFilter(context.Background(), sets)
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if word, ok := filter.Match(line); ok {
				fmt.Printf("MATCH\t%s\t%s\n", word, line)
			}
		}
		return scanner.Err()
	},
}
