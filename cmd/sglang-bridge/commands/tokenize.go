package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/BenYao21/sglang/internal/app"
)

// tokenizeCommand returns the 'tokenize' subcommand.
func tokenizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "tokenize",
		Usage:     "Print the token ids of the configured tokenizer for text",
		ArgsUsage: "<text>",
		Action:    tokenizeAction,
	}
}

// detokenizeCommand returns the 'detokenize' subcommand.
func detokenizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "detokenize",
		Usage:     "Print the text for token ids",
		ArgsUsage: "<id>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "skip-special-tokens",
				Usage: "omit special tokens from the output",
			},
		},
		Action: detokenizeAction,
	}
}

func tokenizeAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	tok, err := app.NewTokenizer(cfg.Model)
	if err != nil {
		return err
	}

	text := strings.Join(cmd.Args().Slice(), " ")
	ids, err := tok.Encode(text)
	if err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}
	if ids == nil {
		ids = []uint32{}
	}
	return json.NewEncoder(cmd.Root().Writer).Encode(ids)
}

func detokenizeAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("no token ids given")
	}
	ids := make([]uint32, 0, cmd.Args().Len())
	for _, arg := range cmd.Args().Slice() {
		id, err := strconv.ParseUint(strings.Trim(arg, "[], "), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid token id %q: %w", arg, err)
		}
		ids = append(ids, uint32(id))
	}

	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	tok, err := app.NewTokenizer(cfg.Model)
	if err != nil {
		return err
	}

	text, err := tok.Decode(ids, cmd.Bool("skip-special-tokens"))
	if err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, text)
	return err
}
