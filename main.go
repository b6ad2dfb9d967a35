// Command tmlight tokenizes and highlights source files with TextMate grammars.
package main

import (
	"fmt"
	"os"

	"github.com/zjrosen/tmlight/cmd"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(fmt.Sprintf("%s (%s, %s)", version, commit, date))

	// cobra has already printed the error and usage hint
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
