package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curvedhammer/Achievle/internal/bot"
	"github.com/curvedhammer/Achievle/internal/model"
	"github.com/curvedhammer/Achievle/internal/service"
)

const jobTimeout = 30 * time.Second

var errNotConfirmed = errors.New("refusing to continue without --yes")

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "questlog",
		Short:         "Personal quest log with XP, levels and daily quests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newBotCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newResetCommand())
	return rootCmd
}

func newBotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot with the daily reset and evening report jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return runBot(cmd.Context(), a)
		},
	}
}

func runBot(ctx context.Context, a *app) error {
	if err := a.cfg.ValidateBot(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	telegramBot, err := bot.New(a.cfg.TelegramToken, a.cfg.OwnerID, a.quests, a.stats, a.logger.Named("bot"))
	if err != nil {
		return err
	}

	scheduler := service.NewSchedulerService(time.Local, a.logger.Named("scheduler"))
	if _, err := scheduler.ScheduleDaily("daily-reset", a.cfg.ResetTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := a.quests.RunDailyReset(jobCtx); err != nil {
			a.logger.Error("daily reset", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule daily reset: %w", err)
	}
	if a.cfg.ReportTime != "" {
		if _, err := scheduler.ScheduleDaily("evening-report", a.cfg.ReportTime, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := telegramBot.SendDailySummary(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("evening report", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule report: %w", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	a.logger.Info("quest log bot started", zap.String("data", a.store.Path()))
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped with error: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

func newStatusCommand() *cobra.Command {
	var sortName, search string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show level, XP and active quests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := service.ListOptions{Search: search}
			if sortName != "" {
				mode, ok := service.ParseSortMode(sortName)
				if !ok {
					return fmt.Errorf("unknown sort %q, use title, type, xp-desc or xp-asc", sortName)
				}
				opts.Sort = mode
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			writeStatus(cmd.OutOrStdout(), a.quests.Snapshot(), a.quests.List(opts))
			return nil
		},
	}
	cmd.Flags().StringVarP(&sortName, "sort", "s", "", "Sort order: title, type, xp-desc, xp-asc")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Only quests whose title or description contains this text")
	return cmd
}

func writeStatus(w io.Writer, store *model.Store, quests []model.Quest) {
	p := service.ProgressFor(store.Progression)
	fmt.Fprintf(w, "Level %d  %d / %d XP (%d%%)\n", p.Level, p.XP, p.Threshold, p.Percent)
	fmt.Fprintf(w, "Completed records: %d, last reset: %s\n\n", len(store.CompletedQuests), store.LastDailyResetDate)

	if len(quests) == 0 {
		fmt.Fprintln(w, "No active quests.")
		return
	}
	for i, q := range quests {
		status := " "
		if q.CompletedToday {
			status = "x"
		}
		line := fmt.Sprintf("%2d. [%s] %s %s (%s, +%d XP)", i+1, status, q.Icon, q.Title, q.Type, q.XPReward)
		if q.IsCumulative {
			line += fmt.Sprintf(" %d/%d", q.CurrentValue, q.TargetValue)
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Copy the data file to path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.quests.Export(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", args[0])
			return nil
		},
	}
}

func newImportCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Replace all data with the file at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("import replaces all quests and progress: %w", errNotConfirmed)
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.quests.Import(cmd.Context(), args[0]); err != nil {
				return err
			}
			store := a.quests.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d active quests, level %d. Previous data kept in %s\n",
				len(store.Quests), store.Level, a.store.BackupPath())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm that current data may be replaced")
	return cmd
}

func newResetCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all quests and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all quests and progress: %w", errNotConfirmed)
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.quests.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Quest log reset. Previous data kept in %s\n", a.store.BackupPath())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm that all data may be deleted")
	return cmd
}
