package main

import (
	"os"

	"github.com/rustyeddy/stratengine/cmd/stratengine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
