package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/BenYao21/sglang/internal/app"
	"github.com/BenYao21/sglang/internal/tokensource"
)

// authCommand returns the 'auth' subcommand for managing the engine API key.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the engine API key",
		Commands: []*cli.Command{
			authSetKeyCommand(),
			authClearKeyCommand(),
			authStatusCommand(),
		},
	}
}

// authSetKeyCommand returns the 'auth set-key' subcommand.
func authSetKeyCommand() *cli.Command {
	return &cli.Command{
		Name:   "set-key",
		Usage:  "Save the engine API key to the OS keyring",
		Action: authSetKeyAction,
	}
}

// authClearKeyCommand returns the 'auth clear-key' subcommand.
func authClearKeyCommand() *cli.Command {
	return &cli.Command{
		Name:   "clear-key",
		Usage:  "Remove the engine API key from the OS keyring",
		Action: authClearKeyAction,
	}
}

// authStatusCommand returns the 'auth status' subcommand.
func authStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Report whether an engine API key is available",
		Action: authStatusAction,
	}
}

// writableKeyStore returns the key store if it accepts writes.
func writableKeyStore(cmd *cli.Command) (tokensource.Store, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Engine.KeyStorage != app.KeyStorageKeyring {
		return nil, app.ErrKeyStorageReadOnly
	}
	store, err := cfg.Engine.KeyStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create key store: %w", err)
	}
	return store, nil
}

func authSetKeyAction(ctx context.Context, cmd *cli.Command) error {
	store, err := writableKeyStore(cmd)
	if err != nil {
		return err
	}

	key, err := readSecureInput(ctx, "Enter engine API key: ")
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if err := store.Write(ctx, key); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}

	w := cmd.Root().Writer
	_, _ = fmt.Fprintln(w, "API key saved to the OS keyring")
	return nil
}

func authClearKeyAction(ctx context.Context, cmd *cli.Command) error {
	store, err := writableKeyStore(cmd)
	if err != nil {
		return err
	}

	// Clear key via empty string write to maintain storage abstraction
	if err := store.Write(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear key: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.Root().Writer, "API key cleared from the OS keyring")
	return nil
}

func authStatusAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	w := cmd.Root().Writer

	if cfg.Engine.APIKey != "" {
		_, _ = fmt.Fprintln(w, "API key: set in config")
		return nil
	}
	store, err := cfg.Engine.KeyStore()
	if err != nil {
		return err
	}
	if store == nil {
		_, _ = fmt.Fprintln(w, "API key: none (key_storage = \"none\")")
		return nil
	}

	key, err := store.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	state := "missing"
	if key != "" {
		state = "present"
	}
	_, _ = fmt.Fprintf(w, "API key: %s (key_storage = %q)\n", state, cfg.Engine.KeyStorage)
	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
