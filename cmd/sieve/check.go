package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ytfilter/sieve/filter"

	cli "github.com/urfave/cli/v2"
)

var checkCmd = &cli.Command{
	Name:  "check",
	Usage: "reads lines of text from stdin, runs the moderation pipeline on each, outputs decisions",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "tokens",
			Usage: "only normalize and tokenize each line, and print the tokens",
		},
	},
	Action: func(cctx *cli.Context) error {
		// stdout is for results
		logger := configLogger(cctx, os.Stderr)

		if cctx.Bool("tokens") {
			return printTokens(os.Stdin, os.Stdout, filter.NewRuleTokenizer(nil))
		}

		cache, err := configCache(cctx)
		if err != nil {
			return err
		}
		pipeline, err := configPipeline(cctx, logger, cache)
		if err != nil {
			return err
		}

		ctx := cctx.Context
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			a, err := pipeline.Analyze(ctx, line)
			if err != nil {
				return err
			}
			fmt.Println(formatAnalysis(a))
		}
		return scanner.Err()
	},
}

func formatAnalysis(a *filter.Analysis) string {
	return fmt.Sprintf("%s\t%.2f\t%s\t%s", a.Action, a.Score, a.ProcessedText, strings.Join(a.Details.Categories(), ","))
}

func printTokens(in io.Reader, out io.Writer, tok filter.Tokenizer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		tokens, err := tok.Tokenize(filter.Normalize(scanner.Text()))
		if err != nil {
			fmt.Fprintf(out, "ERROR\t%s\n", err)
			continue
		}
		parts := make([]string, 0, len(tokens))
		for _, t := range tokens {
			parts = append(parts, t.Word+"/"+t.POS)
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
	}
	return scanner.Err()
}
