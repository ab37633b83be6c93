package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"hackjudge-api/config"
	"hackjudge-api/migrations"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "judging database migrations",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "run pending migrations",
				Action: func(c *cli.Context) error {
					migrator, err := newMigrator()
					if err != nil {
						return err
					}
					return migrator.Migrate(c.Context)
				},
			},
			{
				Name:      "rollback",
				Usage:     "roll back the last batches (default: 1)",
				ArgsUsage: "[steps]",
				Action: func(c *cli.Context) error {
					steps := 1
					if c.Args().Present() {
						n, err := strconv.Atoi(c.Args().First())
						if err != nil || n < 1 {
							return fmt.Errorf("invalid steps %q", c.Args().First())
						}
						steps = n
					}
					migrator, err := newMigrator()
					if err != nil {
						return err
					}
					return migrator.Rollback(c.Context, steps)
				},
			},
			{
				Name:  "status",
				Usage: "show applied and pending migrations",
				Action: func(c *cli.Context) error {
					migrator, err := newMigrator()
					if err != nil {
						return err
					}
					applied, err := migrator.Status(c.Context)
					if err != nil {
						return err
					}
					pending, err := migrator.Pending(c.Context)
					if err != nil {
						return err
					}

					if len(applied) == 0 {
						fmt.Println("No migrations have been run yet.")
					} else {
						fmt.Println("Batch | Name")
						fmt.Println("------|-----")
						for _, m := range applied {
							fmt.Printf("%-5d | %s\n", m.Batch, m.Name)
						}
					}
					for _, name := range pending {
						fmt.Printf("pending | %s\n", name)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newMigrator() (*migrations.Migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	cfg.LogSource(logger)
	if err := config.ConnectDatabase(cfg, logger); err != nil {
		return nil, err
	}

	migrator, err := migrations.NewMigrator(config.DB, logger)
	if err != nil {
		return nil, err
	}
	migrations.Register(migrator)
	return migrator, nil
}
