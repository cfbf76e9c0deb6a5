package main

import (
	"os"

	"github.com/bianoble/assetspkg/cmd/assetspkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
