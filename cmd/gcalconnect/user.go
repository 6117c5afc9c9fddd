package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gcal-connect-api/internal/api/auth"
	"gcal-connect-api/internal/config"
	"gcal-connect-api/internal/database"
	"gcal-connect-api/internal/logger"
	"gcal-connect-api/internal/store/user"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local application users",
	}
	cmd.AddCommand(newUserAddCmd(), newUserListCmd(), newUserTokenCmd())
	return cmd
}

// withUserStore opens the database for the duration of fn.
func withUserStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, users user.UserStorer) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(logger.OptionsFromEnv())
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, cfg, user.NewUserStore(pool))
}

func newUserAddCmd() *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd, func(ctx context.Context, _ *config.Config, users user.UserStorer) error {
				return addUser(ctx, users, cmd.OutOrStdout(), email, name)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address of the user")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserListCmd() *cobra.Command {
	var connectedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users and their Google connection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(cmd, func(ctx context.Context, _ *config.Config, users user.UserStorer) error {
				return listUsers(ctx, users, cmd.OutOrStdout(), connectedOnly)
			})
		},
	}
	cmd.Flags().BoolVar(&connectedOnly, "connected", false, "only users with a stored Google token")
	return cmd
}

func newUserTokenCmd() *cobra.Command {
	var (
		id  string
		ttl time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(id)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", id, err)
			}
			return withUserStore(cmd, func(ctx context.Context, cfg *config.Config, users user.UserStorer) error {
				return issueToken(ctx, users, cmd.OutOrStdout(), cfg.JWTSecret, userID, ttl)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultJWTTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func addUser(ctx context.Context, users user.UserStorer, out io.Writer, email, name string) error {
	u, err := users.CreateUser(ctx, email, name)
	if err != nil {
		return fmt.Errorf("could not create user: %w", err)
	}
	fmt.Fprintf(out, "%s %s (%s)\n", color.GreenString("created"), u.Email, u.ID)
	return nil
}

func listUsers(ctx context.Context, users user.UserStorer, out io.Writer, connectedOnly bool) error {
	fetch := users.ListUsers
	if connectedOnly {
		fetch = users.ListConnectedUsers
	}
	list, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("could not list users: %w", err)
	}

	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	connected := color.New(color.FgGreen).SprintFunc()
	subtle := color.New(color.FgHiBlack).SprintFunc()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", header("ID"), header("EMAIL"), header("NAME"), header("GOOGLE"))
	for _, u := range list {
		name := ""
		if u.Name != nil {
			name = *u.Name
		}
		status := subtle("not connected")
		if u.GoogleConnected {
			status = connected("connected")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Email, name, status)
	}
	return tw.Flush()
}

func issueToken(ctx context.Context, users user.UserStorer, out io.Writer, secret string, userID uuid.UUID, ttl time.Duration) error {
	if _, err := users.GetUserByID(ctx, userID); err != nil {
		return fmt.Errorf("could not load user: %w", err)
	}

	tokenString, err := auth.GenerateJWT(secret, userID, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tokenString)
	return nil
}
