// main.go
package main

import (
	"os"
	"time"

	"vendingbackend/internal/cli"
)

func init() {
	loc, err := time.LoadLocation("Europe/London")
	if err == nil {
		time.Local = loc // This affects the standard log package
	}
}

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
