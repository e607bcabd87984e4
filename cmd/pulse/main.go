// Command pulse serves the attribution API and runs recomputes from the shell.
//
// @title          Virio Pulse API
// @version        1.0
// @description    Content-to-pipeline attribution: recompute and read per-post rollups of inbound signals, meetings and opportunities.
// @BasePath       /api/v1
package main

import (
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}
	if err := NewRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("pulse failed")
		os.Exit(1)
	}
}
