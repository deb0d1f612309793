package main

import (
	"fmt"
	"os"

	"feedreader/internal/commands"
)

func main() {
	if err := commands.RootApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
