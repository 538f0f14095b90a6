package main

import (
	"os"

	"github.com/anvil-dev/anvil/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
