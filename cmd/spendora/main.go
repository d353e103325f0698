// Command spendora signs in to the Spendora API from a terminal.
//
//	spendora [-v] [-metrics] <command> [flags]
//
// Credentials are kept between runs in the configured credential store, so
// "spendora whoami" after "spendora login" picks up the existing session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-spendora-client/internal/config"
	"github.com/jrsteele09/go-spendora-client/internal/logging"
	"github.com/jrsteele09/go-spendora-client/internal/ui"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, ui.Failure.Render(err.Error()))
		}
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()

	root := flag.NewFlagSet("spendora", flag.ContinueOnError)
	verbose := root.Bool("v", false, "Print every API request")
	dumpMetrics := root.Bool("metrics", false, "Print client metrics after the command")
	root.Usage = func() { usage(out, c.GetAppName(), root) }
	if err := root.Parse(args); err != nil {
		return errUsage
	}
	if root.NArg() == 0 {
		root.Usage()
		return errUsage
	}

	logging.Setup(c.GetEnv(), c.GetLogLevel())

	name := root.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(out, "unknown command %q\n\n", name)
		root.Usage()
		return errUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, c, appOptions{verbose: *verbose, out: out})
	if err != nil {
		return err
	}
	defer a.close()

	p := newPrompter(in, out)
	if err := cmd.run(ctx, a, p, root.Args()[1:]); err != nil {
		return err
	}
	if *dumpMetrics {
		a.printMetrics(out)
	}
	return nil
}

func usage(out io.Writer, appname string, root *flag.FlagSet) {
	displayAppname(out, appname)
	fmt.Fprintln(out, "Usage: spendora [flags] <command> [command flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Title.Render("Commands"))
	for _, name := range commandNames() {
		fmt.Fprintf(out, "  %s %s\n", ui.Label.Render(name), ui.Dim.Render(commands[name].summary))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Title.Render("Flags"))
	root.SetOutput(out)
	root.PrintDefaults()
}

func displayAppname(out io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(out, ui.Title.Render(myFigure.String()))
}
