/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"clubfeed/cache"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the cache file",
		Description: `Tidy up the cache file by removing expired results.

		Expired entries are never served, but they stay in the bbolt file until
		they are overwritten. Run this from time to time to keep the file small.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "cache-file",
				Aliases: []string{"d"},
				Value:   "cache.db",
				Usage:   "bbolt cache file location",
				EnvVars: []string{"CLUBFEED_CACHE_FILE"},
			},
		},
		Action: func(ctx *cli.Context) error {
			path := ctx.String("cache-file")
			fmt.Println("Cache file configured: ", path)

			store, err := cache.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Tidy()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired entries\n", removed)
			return nil
		},
	}
}
