package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	s.app = cli.NewApp()
	s.app.Action = cli.ShowAppHelp
	s.app.Name = "gemdrops"
	s.app.Usage = "Reward allocation and token economy service"
	s.app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "env-file",
			Usage:   "Load environment variables from this file before starting",
			Value:   ".env",
			EnvVars: []string{"ENV_FILE"},
		},
	}
	s.app.Before = s.loadEnvFile
	s.app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start service api",
			Category:    "Api",
			Description: `Serve the http apis.`,
		},
		{
			Action:   s.startMigrate,
			Name:     "migrate",
			Usage:    "Migrate the database",
			Category: "Database",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "version",
					Usage: `Migrator to run, "sql" applies the embedded mysql migrations, "auto" migrates from entities`,
					Value: "auto",
				},
			},
			Description: `Create or update the database schema.`,
		},
		{
			Action:    s.startSeed,
			Name:      "seed",
			Usage:     "Seed the catalog from a toml file",
			ArgsUsage: "<seed.toml>",
			Category:  "Database",
			Description: `Read a toml file and create every card template, offering and raffle
it declares. Offering pools and raffle prizes refer to card templates by name.`,
		},
	}
}
