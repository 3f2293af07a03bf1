package config

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/subosito/gotenv"
)

const dotEnvLocal = ".env.local"

func runningInTest() bool {
	return flag.Lookup("test.v") != nil
}

// loadDotEnvLocal applies .env.local from the working directory, overriding
// already set variables.
func loadDotEnvLocal() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	path := filepath.Join(wd, dotEnvLocal)
	if _, err := os.Stat(path); err != nil {
		return
	}

	if err := gotenv.OverLoad(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to load .env.local")
		return
	}

	log.Warn().Str("path", path).Msg("Applied .env.local overrides")
}
