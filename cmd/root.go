/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "clubfeed",
		Usage: "News, Facebook posts and YouTube videos for the club website",
		Description: `Aggregates BWF news, the club's Facebook page and its YouTube
		channel into three JSON endpoints for the club website.

		Upstream sites block scrapers often, so every pipeline walks an ordered
		chain of sources and caches the last good result.

		Flags can generally be set via environment variables, e.g.:

		--port => CLUBFEED_PORT=3000
		--cache-file => CLUBFEED_CACHE_FILE=cache.db
		--youtube-key => YOUTUBE_API_KEY=...

		A .env file in the working directory is loaded before flags are parsed.
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level: debug, info, warn or error",
				EnvVars: []string{"CLUBFEED_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Log as JSON instead of text",
				EnvVars: []string{"CLUBFEED_LOG_JSON"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/sources.toml",
				Usage:   "Path to the sources configuration file",
				EnvVars: []string{"CLUBFEED_CONFIG"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			if ctx.Bool("log-json") {
				log.SetFormatter(&log.JSONFormatter{})
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			tidyCmd(),
			initCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
