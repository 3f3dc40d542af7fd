package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Astemirdum/library-circulation/circulation/app"
	"github.com/Astemirdum/library-circulation/circulation/cli"
	"github.com/Astemirdum/library-circulation/circulation/config"
	"github.com/Astemirdum/library-circulation/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load envs from .env:", err)
		os.Exit(1)
	}

	open := func(ctx context.Context) (cli.Circulation, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		core, err := app.Open(ctx, cfg, logger.NewLogger(cfg.Log, "circulationctl"))
		if err != nil {
			return nil, nil, err
		}
		return core.Service, core.Close, nil
	}

	if err := cli.NewRootCommand(open).Execute(); err != nil {
		os.Exit(1)
	}
}
