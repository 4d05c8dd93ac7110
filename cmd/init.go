/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type envQuestion struct {
	Key    string
	Ask    string
	Secret bool
}

var envQuestions = []envQuestion{
	{Key: "SCRAPERAPI_KEY", Ask: "ScraperAPI key (optional):", Secret: true},
	{Key: "SCRAPINGBEE_API_KEY", Ask: "ScrapingBee key (optional):", Secret: true},
	{Key: "FB_PAGE_ID", Ask: "Facebook page id or name:"},
	{Key: "FB_PAGE_ACCESS_TOKEN", Ask: "Facebook page access token (optional):", Secret: true},
	{Key: "FB_RSS_FEED_URL", Ask: "Facebook RSS feed URL (optional):"},
	{Key: "YOUTUBE_API_KEY", Ask: "YouTube Data API key:", Secret: true},
	{Key: "YOUTUBE_HANDLE", Ask: "YouTube channel handle:"},
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a .env file with the upstream credentials",
		Description: `Asks for every API key and source the pipelines use and writes
them to a .env file, which is loaded on start.

Values already in the file are kept when the answer is left empty.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   ".env",
				Usage:   "Path of the .env file to write",
				EnvVars: []string{"CLUBFEED_ENV_FILE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			path := ctx.String("output")

			existing, err := godotenv.Read(path)
			if errors.Is(err, fs.ErrNotExist) {
				existing = map[string]string{}
			} else if err != nil {
				return fmt.Errorf("could not read %s: %w", path, err)
			}

			answers := map[string]string{}
			for _, q := range envQuestions {
				var opts []input.Option
				if q.Secret {
					opts = append(opts, input.WithEchoMode(input.EchoNone))
				}

				def := existing[q.Key]
				if q.Secret {
					def = ""
				}

				answer, err := prompt.New().Ask(q.Ask).Input(def, opts...)
				if err != nil {
					return err
				}
				answers[q.Key] = answer
			}

			if err := godotenv.Write(mergeEnv(existing, answers), path); err != nil {
				return fmt.Errorf("could not write %s: %w", path, err)
			}
			if err := os.Chmod(path, 0o600); err != nil {
				return err
			}

			fmt.Println("Wrote", path)
			return nil
		},
	}
}

// mergeEnv overlays the non-empty answers on the existing values.
func mergeEnv(existing, answers map[string]string) map[string]string {
	merged := make(map[string]string, len(existing)+len(answers))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range answers {
		if v != "" {
			merged[k] = v
		}
	}
	return merged
}
