package main

import (
	"os"

	"github.com/yolodolo42/clawroyale/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
