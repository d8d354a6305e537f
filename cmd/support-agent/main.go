package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/comigor/support-agent/internal/config"
)

func main() {
	if err := execute(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Fprintln(os.Stderr, "Please set "+config.APIKeyEnv+" in .env file")
		}
		os.Exit(1)
	}
}
