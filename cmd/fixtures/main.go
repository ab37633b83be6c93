package main

import (
	"fmt"
	"log"
	"os"

	"hackjudge-api/config"
	"hackjudge-api/fixtures"

	"github.com/urfave/cli/v2"
)

func main() {
	seedFlag := &cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 picks one from the clock"}
	teamsFlag := &cli.IntFlag{Name: "teams", Value: fixtures.DefaultTeamCount, Usage: "number of teams to generate"}

	app := &cli.App{
		Name:  "fixtures",
		Usage: "judging test data",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "generate criteria, teams, the first round and scores",
				Flags: []cli.Flag{seedFlag, teamsFlag},
				Action: func(c *cli.Context) error {
					f, err := newFixtures(c.Uint64("seed"))
					if err != nil {
						return err
					}
					if err := f.GenerateTestData(c.Context, c.Int("teams")); err != nil {
						return fmt.Errorf("failed to generate fixtures: %w", err)
					}
					fmt.Println("Fixtures generated successfully")
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "delete all judging data",
				Action: func(c *cli.Context) error {
					f, err := newFixtures(0)
					if err != nil {
						return err
					}
					if err := f.ClearAllData(c.Context); err != nil {
						return fmt.Errorf("failed to clear fixtures: %w", err)
					}
					fmt.Println("All fixture data cleared")
					return nil
				},
			},
			{
				Name:  "regenerate",
				Usage: "clear and generate again",
				Flags: []cli.Flag{seedFlag, teamsFlag},
				Action: func(c *cli.Context) error {
					f, err := newFixtures(c.Uint64("seed"))
					if err != nil {
						return err
					}
					if err := f.Regenerate(c.Context, c.Int("teams")); err != nil {
						return fmt.Errorf("failed to regenerate fixtures: %w", err)
					}
					fmt.Println("Fixtures regenerated successfully")
					return nil
				},
			},
			{
				Name:  "seed",
				Usage: "load criteria and teams from a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "path to the seed file"},
				},
				Action: func(c *cli.Context) error {
					f, err := newFixtures(0)
					if err != nil {
						return err
					}
					result, err := f.SeedFromFile(c.Context, c.String("file"))
					if err != nil {
						return err
					}
					fmt.Printf("Seeded %d criteria, %d teams, %d members (%d skipped)\n",
						result.CriteriaCreated, result.TeamsCreated, result.MembersCreated, result.Skipped)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newFixtures(seed uint64) (*fixtures.Fixtures, error) {
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
	return fixtures.NewFixtures(config.DB, seed, logger), nil
}
