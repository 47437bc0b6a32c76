package main

import (
	"os"

	"github.com/signalnine/prunestat/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
