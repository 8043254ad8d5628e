// Package main provides the entry point for the sumtree CLI.
package main

import (
	"errors"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		printError("%v", err)
		os.Exit(1)
	}
}
