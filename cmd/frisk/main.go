package main

import (
	"os"

	"frisk/internal/friskcli"
)

func main() {
	if err := friskcli.Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
