package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/travelbook/admin-console/console"
	"github.com/travelbook/admin-console/internal/config"
	"github.com/travelbook/admin-console/internal/logging"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	c := config.New()
	logging.Setup(c.GetLogLevel(), c.GetLogPretty())

	if err := run(c, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, console.Red+err.Error()+console.ResetColor)
		os.Exit(1)
	}
}

func run(c config.Config, args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := console.New(ctx, c)
	if err != nil {
		return err
	}
	defer app.Close()

	if len(args) == 0 {
		displayAppname(c.GetAppName())
	}
	root := console.NewRootCommand(app)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
