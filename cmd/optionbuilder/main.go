package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "render":
		err = runRender(ctx, logger, args)
	case "edit":
		err = runEdit(ctx, logger, args)
	case "serve":
		err = runServe(ctx, logger, args)
	case "import":
		err = runImport(ctx, logger, args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func usage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n\n", name)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  render   render a container from a definitions directory")
	fmt.Fprintln(os.Stderr, "  edit     prompt for field values and save them to the option store")
	fmt.Fprintln(os.Stderr, "  serve    serve rendered containers over HTTP")
	fmt.Fprintln(os.Stderr, "  import   convert an OpenAPI component schema into a definitions file")
	fmt.Fprintf(os.Stderr, "\nRun '%s <command> -h' for command flags.\n", name)
}
