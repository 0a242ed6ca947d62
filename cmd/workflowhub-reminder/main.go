// Package main runs the approval reminder job.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/cmd"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/log"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/reminders"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "workflowhub-reminder"

func main() {
	command := &cli.Command{
		Name:  serviceName,
		Usage: "Publish reminders for tasks waiting on approvers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression (minute hour day month weekday)",
				Value:   reminders.DefaultSchedule,
				Sources: cli.EnvVars("REMINDER_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "stale-after",
				Usage:   "Remind about tasks unchanged for at least this long",
				Value:   reminders.DefaultStaleAfter,
				Sources: cli.EnvVars("REMINDER_STALE_AFTER"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single pass and exit",
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://, postgres://, redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "enforce-approval-mode",
				Usage:   "Treat ALL-mode stages as waiting on every remaining approver",
				Value:   true,
				Sources: cli.EnvVars("ENFORCE_APPROVAL_MODE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.New(command.String("log-level"), "reminder")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), serviceName, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			engine := workflow.New(logger,
				workflow.WithApprovalModeEnforcement(command.Bool("enforce-approval-mode")))

			reminder, err := reminders.New(reminders.Config{
				Schedule:   command.String("schedule"),
				StaleAfter: command.Duration("stale-after"),
			}, persistence, engine, eventBus, logger)
			if err != nil {
				return err
			}

			if command.Bool("once") {
				sent, err := reminder.RunOnce(ctx)
				if err != nil {
					return err
				}

				logger.InfoContext(ctx, "Reminder pass finished", "reminders_sent", sent)

				return nil
			}

			if err := reminder.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			return reminder.Stop(stopCtx)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("reminder").Error("Reminder stopped with error", "error", err)
		os.Exit(1)
	}
}
