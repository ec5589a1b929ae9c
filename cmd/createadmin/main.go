package main

import (
	"fmt"
	"os"

	"anoa.com/sparkvest/internal/bootstrap"
	"anoa.com/sparkvest/internal/config"
	"anoa.com/sparkvest/pkg/database"
	"anoa.com/sparkvest/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Configure(cfg.AppEnv, os.Stderr)

	app := &cli.App{
		Name:  "createadmin",
		Usage: "create the SparkVest administrator account if it does not exist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "email",
				Usage:   "administrator email",
				Value:   cfg.AdminEmail,
				EnvVars: []string{"ADMIN_EMAIL"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "administrator password",
				Value:   cfg.AdminPassword,
				EnvVars: []string{"ADMIN_PASSWORD"},
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "run schema migrations first",
			},
		},
		Action: func(c *cli.Context) error {
			db, err := database.Connect(database.Options{
				Host:     cfg.DBHost,
				User:     cfg.DBUser,
				Password: cfg.DBPass,
				Name:     cfg.DBName,
				Port:     cfg.DBPort,
				SSLMode:  cfg.DBSSLMode,
			})
			if err != nil {
				return err
			}

			if c.Bool("migrate") {
				if err := bootstrap.Migrate(db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			created, err := bootstrap.EnsureAdmin(c.Context, db, c.String("email"), c.String("password"))
			if err != nil {
				return err
			}

			if created {
				fmt.Fprintf(c.App.Writer, "admin %s created\n", c.String("email"))
			} else {
				fmt.Fprintf(c.App.Writer, "admin %s already exists\n", c.String("email"))
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.L().Fatal().Err(err).Msg("createadmin failed")
	}
}
