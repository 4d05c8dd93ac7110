/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"clubfeed/facebook"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// fetchCmd runs one pipeline once and prints the result
func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Run one pipeline and print its items",
		ArgsUsage: "<bwf|facebook|youtube>",
		Description: `Runs the BWF, Facebook or YouTube pipeline once, bypassing any
cached result, and prints each item as a JSON object on a single line. Use a
tool like jq to process the output.

Prints all log messages to stderr.`,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Number of Facebook posts",
				Value:   facebook.DefaultLimit,
			},
			&cli.BoolFlag{
				Name:  "events",
				Usage: "Only Facebook posts that look like events",
			},
		}, sourceFlags()...),
		Action: func(ctx *cli.Context) error {
			// Disable logging to stdout
			log.SetOutput(os.Stderr)

			pipeline := ctx.Args().First()
			switch pipeline {
			case "":
				return errors.New("missing pipeline, expected one of bwf, facebook or youtube")
			case "bwf", "facebook", "fb", "youtube", "yt":
			default:
				return fmt.Errorf("unknown pipeline %q", pipeline)
			}

			p, err := buildPipelines(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			var items []any
			switch pipeline {
			case "bwf":
				resp, err := p.news.Fetch(ctx.Context, true)
				if err != nil {
					return err
				}
				for _, item := range resp.Items {
					items = append(items, item)
				}
			case "facebook", "fb":
				resp, err := p.posts.Fetch(ctx.Context, facebook.Query{
					Limit:      ctx.Int("limit"),
					EventsOnly: ctx.Bool("events"),
					Refresh:    true,
				})
				if err != nil {
					return err
				}
				for _, item := range resp.Items {
					items = append(items, item)
				}
			case "youtube", "yt":
				resp, err := p.videos.Videos(ctx.Context)
				if err != nil {
					return err
				}
				for _, video := range resp.Videos {
					items = append(items, video)
				}
			}

			log.WithFields(log.Fields{
				"pipeline": pipeline,
				"items":    len(items),
			}).Info("Fetched")

			for _, item := range items {
				printStdout(item)
			}
			return nil
		},
	}
}

func printStdout(item any) {
	// Print as single JSON string on a single line
	itemJson, err := json.Marshal(item)
	if err == nil {
		fmt.Println(string(itemJson))
	}
}
