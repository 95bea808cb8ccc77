package main

import (
	"os"

	"github.com/mileagekit/mileage/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
