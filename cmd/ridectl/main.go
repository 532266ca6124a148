package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	appMigrations "github.com/yigit/motobuddies/internal/app/migrations"
	"github.com/yigit/motobuddies/internal/bootstrap"
	"github.com/yigit/motobuddies/internal/config"
	pkgAuth "github.com/yigit/motobuddies/internal/pkg/auth"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "ridectl",
		Short:         "Operational tasks for the MotoBuddies backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", bootstrap.ConfigPath(), "Path to the YAML config file")

	cmd.AddCommand(newMigrateCommand(&configPath))
	cmd.AddCommand(newRemindCommand(&configPath))
	cmd.AddCommand(newTokenCommand(&configPath))
	return cmd
}

func newMigrateCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect the schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(*configPath)
			if err != nil {
				return err
			}
			migrator, err := appMigrations.NewMigrator(cfg.GetPostgresConnectionString(), lgr)
			if err != nil {
				return err
			}
			defer migrator.Close()

			ctx := cmd.Context()
			switch args[0] {
			case "up":
				return migrator.Up(ctx)
			case "down":
				return migrator.Down(ctx)
			case "status":
				return migrator.Status(ctx)
			case "version":
				version, err := migrator.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			default:
				return fmt.Errorf("unknown migrate action %q", args[0])
			}
		},
	}
	return cmd
}

func newRemindCommand(configPath *string) *cobra.Command {
	var within time.Duration

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Notify participants of rides starting soon",
		Long:  "Sends a ride_reminder notification, and an email when SMTP is configured, to everyone attending or maybe attending a ride that starts within the window.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(*configPath)
			if err != nil {
				return err
			}
			database, err := bootstrap.SetupDatabase(ctx, cfg, lgr)
			if err != nil {
				return err
			}
			deps, err := bootstrap.BuildDependencies(ctx, cfg, database, lgr)
			if err != nil {
				database.Close()
				return err
			}
			defer deps.Close()

			background, cancel := context.WithCancel(ctx)
			defer cancel()
			if err := deps.Start(background); err != nil {
				return err
			}

			result, err := deps.Services.Reminder.SendReminders(ctx, within)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rides: %d, notifications: %d, emails: %d\n",
				result.Rides, result.Notifications, result.Emails)
			return nil
		},
	}

	cmd.Flags().DurationVar(&within, "within", 24*time.Hour, "Remind rides starting within this window")
	return cmd
}

func newTokenCommand(configPath *string) *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			if ttl <= 0 {
				ttl = config.Duration(cfg.JWT.DevTokenTTL, 24*time.Hour)
			}

			jwtService := pkgAuth.NewJWTService(pkgAuth.JWTConfig{
				SecretKey:   cfg.JWT.Secret,
				TokenIssuer: cfg.JWT.Issuer,
				Audience:    cfg.JWT.Audience,
			})
			token, expiresAt, err := jwtService.GenerateToken(id, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID (the sub claim)")
	cmd.Flags().StringVar(&email, "email", "", "Optional email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime; defaults to jwt.dev_token_ttl")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
