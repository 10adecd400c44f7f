// Command coachdesk is the administrative client of the coaching-institute backend.
// It lists and edits the institute's records from the command line, in an
// interactive terminal console, or through a local browser dashboard.
//
// Usage:
//
//	coachdesk [global flags] <command> [command flags]
//	coachdesk -config coachdesk.yaml list students -filter batchId=B1
//	coachdesk login -email admin@example.com
//	coachdesk tui
//	coachdesk serve
//
// The backend URL comes from -api, COACHDESK_API_URL, the config file or the
// COACHDESK_ENV default, in that order.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &commandLine{in: os.Stdin, out: os.Stdout}
	if err := cli.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
