package main

import (
	"os"

	"github.com/ryabkov82/template-merger/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
