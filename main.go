// Command lfc lowers C unnamed function expressions to static functions.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/thradams/local-functions/cli"
	"github.com/thradams/local-functions/log"
)

func main() {
	if err := cli.Run(context.Background(), os.Exit, os.Args[1:]...); err != nil {
		log.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}
}
