package main

import (
	"errors"
	"io/fs"

	"clubfeed/cmd"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/crypto/x509roots/fallback" // We need this to make TLS work in scratch containers
)

func main() {
	// Values already in the environment win over the .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Could not load .env file")
	}
	cmd.Execute()
}
