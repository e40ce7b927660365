package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

const usage = `Usage: %s <command> [flags] [args]

Commands:
  list <kind>          print the cards of one section
  show                 print every section
  create <kind>        fill a creation form and submit it
  edit <kind> <id>     fill an edit form and submit it
  delete <kind> <id>   delete an item (asks for confirmation unless --yes)
  export               render the project (--format paginated|styled, --output)
  contract             compare the registry with the backend OpenAPI (--openapi)
  serve                serve the local browser adapter (--addr)
  projects [create | edit <id> | delete <id>]
                       list the account's projects (--estado) or manage one

Every command accepts the configuration flags (run "<command> -h").
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr, getenv: os.Getenv}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "artefactos: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, usage, filepath.Base(os.Args[0]))
}
