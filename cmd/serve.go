/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clubfeed/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the news, Facebook and YouTube endpoints",
		Description: `Starts the clubfeed HTTP server.

		Serves GET /api/bwf-news, /api/fb-feed and /api/youtube-videos, plus
		/healthz and Prometheus metrics on /metrics. Results are cached in
		memory, or in the --cache-file bbolt file when one is given.`,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"CLUBFEED_PORT", "PORT"},
			},
			&cli.StringFlag{
				Name:    "allow-origins",
				Value:   "*",
				Usage:   "Comma separated CORS origins for the news and Facebook endpoints",
				EnvVars: []string{"CLUBFEED_ALLOW_ORIGINS"},
			},
			&cli.DurationFlag{
				Name:    "request-timeout",
				Value:   60 * time.Second,
				Usage:   "Upper bound for one request including every upstream call",
				EnvVars: []string{"CLUBFEED_REQUEST_TIMEOUT"},
			},
		}, sourceFlags()...),
		Action: func(ctx *cli.Context) error {
			p, err := buildPipelines(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			app := server.Server(&server.ServerConfig{
				News:           p.news,
				Posts:          p.posts,
				Videos:         p.videos,
				AllowOrigins:   ctx.String("allow-origins"),
				RequestTimeout: ctx.Duration("request-timeout"),
			})

			// Graceful shutdown
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigs)

			go func() {
				select {
				case <-sigs:
				case <-ctx.Context.Done():
				}
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
					log.WithFields(log.Fields{
						"error": err,
					}).Error("Error shutting down server")
				}
			}()

			addr := fmt.Sprintf(":%d", ctx.Int("port"))
			log.WithFields(log.Fields{
				"addr": addr,
			}).Info("Starting server")

			if err := app.Listen(addr); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}

			log.Info("Done!")
			return nil
		},
	}
}
