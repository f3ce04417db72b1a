package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/basalt/internal/toy"
	"github.com/samcharles93/basalt/pkg/dtype"
)

func demoCmd() *cli.Command {
	var (
		steps  int64
		prompt string
	)

	flags := append([]cli.Flag{}, commonModelFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "steps",
			Aliases:     []string{"n"},
			Usage:       "number of tokens to generate after the prompt",
			Value:       16,
			Destination: &steps,
		},
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "comma-separated prompt token ids",
			Value:       "1,2,3",
			Destination: &prompt,
		},
	)

	return &cli.Command{
		Name:  "demo",
		Usage: "Greedily decode tokens with the toy model",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyModelConfig(cmd, cfg, &steps)
			applyLogConfig(cmd, cfg)
			log := newLogger()

			dt, err := dtype.Parse(dtypeName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			toks, err := parseTokens(prompt)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: prompt: %v", err), 1)
			}
			for _, t := range toks {
				if t < 0 || t >= vocab {
					return cli.Exit(fmt.Sprintf("error: prompt token %d outside vocab [0,%d)", t, vocab), 1)
				}
			}

			m, err := toy.New(toy.Config{
				Vocab:   int(vocab),
				Heads:   int(heads),
				KVHeads: int(kvHeads),
				HeadDim: int(headDim),
				MaxSeq:  len(toks) + int(steps),
				DType:   dt,
				Seed:    seed,
			}, log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: build model: %v", err), 1)
			}

			log.Info("decoding",
				"dtype", dt,
				"prompt_tokens", len(toks),
				"steps", steps,
			)
			seq, err := m.Generate(toks, int(steps))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: generate: %v", err), 1)
			}

			parts := make([]string, len(seq))
			for i, t := range seq {
				parts[i] = strconv.FormatInt(t, 10)
			}
			fmt.Println(strings.Join(parts, " "))
			return nil
		},
	}
}

// parseTokens splits a comma-separated list of token ids.
func parseTokens(s string) ([]int64, error) {
	fields := strings.Split(s, ",")
	toks := make([]int64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		t, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad token id %q", f)
		}
		toks = append(toks, t)
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("no token ids in %q", s)
	}
	return toks, nil
}
