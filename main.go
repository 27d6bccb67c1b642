package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"speedraw/cli"
	"speedraw/logger"
	"speedraw/routes"
)

func main() {
	root := cli.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(routes.Version()),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}
