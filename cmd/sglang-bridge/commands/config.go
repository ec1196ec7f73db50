package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/BenYao21/sglang/internal/app"
)

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"addr":       "server.addr",
	"engine-url": "engine.url",
	"model":      "model.name",
}

// loadConfig loads the config file at path and applies environment
// variables and explicitly set flags on top.
func loadConfig(path string, cmd *cli.Command, environ func() []string) (*app.Config, error) {
	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}
	return app.LoadConfig(path, environ, overrides)
}
