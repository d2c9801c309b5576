package main

import (
	"flag"

	"github.com/danmuck/wlboot/internal/config"
	"github.com/danmuck/wlboot/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()
	kind := flag.String("kind", "discover", "config kind: discover|monitor")
	output := flag.String("output", "wlboot.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "wlboot.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal().Err(err).Msg("config invalid")
		}
		log.Info().
			Str("path", *input).
			Strs("interests", cfg.Interests).
			Strs("caps", cfg.VersionCaps()).
			Msg("validated config")
		return
	}

	if _, err := config.Template(*kind); err != nil {
		log.Fatal().Err(err).Msg("unknown kind")
	}
	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template failed")
	}
	log.Info().Str("kind", *kind).Str("path", *output).Msg("wrote config template")
}
