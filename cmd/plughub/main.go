package main

import (
	"os"

	"github.com/andrei-cloud/plughub/cmd/plughub/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
