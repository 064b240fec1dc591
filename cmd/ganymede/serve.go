package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/policy/source"
	"mercator-hq/ganymede/pkg/schedule"
	"mercator-hq/ganymede/pkg/server"
	"mercator-hq/ganymede/pkg/webhook"
)

var serveFlags struct {
	botName string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server, with optional scheduled triage",
	Long: `Run the webhook server. Note events drive chat commands, issue and
merge request events optionally run through the policy rules, and the
scheduler (when enabled) runs full triage passes on a cron schedule.

Examples:
  # Serve with the configured policies
  ganymede serve

  # Answer chat commands addressed to a specific account
  ganymede serve --bot-name triage-bot`,
	RunE: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.botName, "bot-name", "", "account name chat commands must address")
}

func serve(cmd *cobra.Command, args []string) error {
	a, cleanup, err := buildApp()
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer cleanup()

	ctx := cli.SetupSignalHandler()
	if err := a.reload(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	if err := a.api.Health(ctx); err != nil {
		a.logger.Warn("forge health check failed", "error", err)
	}

	if a.cfg.Policy.Watch {
		fileSource, ok := a.source.(*source.FileSource)
		if !ok {
			return fmt.Errorf("policy watching requires a file source")
		}
		watcher, err := source.NewWatcher(fileSource, 0, a.logger)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		go func() {
			if err := watcher.Watch(ctx, func() error { return a.reload(ctx) }); err != nil {
				a.logger.Error("policy watcher exited", "error", err)
			}
		}()
	}

	if a.cfg.Schedule.Enabled {
		scheduler := schedule.New(schedule.Config{
			Schedule:      a.cfg.Schedule,
			RetentionDays: a.cfg.Ledger.RetentionDays,
			Document:      a.document,
			Processor:     a.processor,
			Ledger:        a.store,
			Metrics:       a.metrics,
			Logger:        a.logger,
		})
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("serve", err)
		}
	}

	dispatcher := webhook.New(webhook.Config{
		Secret:    a.cfg.Server.WebhookSecret,
		BotName:   serveFlags.botName,
		API:       a.api,
		Executor:  a.executor,
		Commands:  webhook.DefaultCommands(),
		Document:  a.document,
		Processor: a.processor,
		Logger:    a.logger,
		Metrics:   a.metrics,
	})

	var metricsHandler http.Handler
	if a.cfg.Telemetry.Metrics.Enabled {
		metricsHandler = a.metrics.Handler()
	}

	srv := server.New(server.Options{
		Config:      a.cfg.Server,
		Webhook:     dispatcher,
		Metrics:     metricsHandler,
		MetricsPath: a.cfg.Telemetry.Metrics.Path,
		Logger:      a.logger,
	})

	fmt.Printf("Ganymede %s listening on %s\n", Version, a.cfg.Server.ListenAddress)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}
