// Command libadmin moderates the reading room from a terminal: it logs in with the
// admin password, keeps the token in a private file and lists, approves or deletes
// reviews and books.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"reading_room/internal/adapters/observability"
)

func main() {
	log.Logger = observability.NewLoggerTo(os.Stderr, os.Getenv("APP_ENV"))
	cmd, release := newRootCmd()
	err := cmd.Execute()
	release()
	if err != nil {
		fmt.Fprintln(os.Stderr, "libadmin:", err)
		os.Exit(1)
	}
}
