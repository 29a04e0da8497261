package main

import (
	"log"
	"os"

	"flowcanvas/internal/ui"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := rootCmd().Execute(); err != nil {
		ui.Bad.Fprintf(os.Stderr, "flowcanvas: %v\n", err)
		os.Exit(1)
	}
}
