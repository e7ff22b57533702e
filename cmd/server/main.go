package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

// @title Health Sync API
// @version 1.0
// @description Connects Fitbit and Google Fit accounts and imports daily health metrics.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := cli.NewApp()
	app.Name = "health-sync"
	app.Usage = "Fitbit and Google Fit integration service"
	app.Action = runServe
	app.Commands = []*cli.Command{
		{
			Action:      runServe,
			Name:        "serve",
			Usage:       "Start the HTTP API",
			Category:    "Api",
			Description: `Serves the sync, OAuth and integration endpoints.`,
		},
		{
			Action:   runSync,
			Name:     "sync",
			Usage:    "Sync one user's provider data from the command line",
			Category: "Operations",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user", Usage: "user id", Required: true},
				&cli.StringFlag{Name: "provider", Usage: "fitbit or google_fit", Required: true},
				&cli.IntFlag{Name: "days", Usage: "number of days to sync, defaults to the incremental window"},
			},
			Description: `Runs the same sync as the API for an operator, honouring the per-provider lock.`,
		},
		{
			Action:      runMigrate,
			Name:        "migrate",
			Usage:       "Apply database migrations",
			Category:    "Operations",
			Description: `Applies every embedded SQL migration that has not run yet.`,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("health-sync: %v", err)
	}
}
