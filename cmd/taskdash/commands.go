package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tgienger/taskdash/internal/db"
	"github.com/tgienger/taskdash/internal/models"
)

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.db.CreateUser(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			e.log.Info("user registered", "email", u.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", u.Email)
			return nil
		},
	}

	cmd.Flags().StringP("email", "e", "", "Account email")
	cmd.Flags().StringP("name", "n", "", "Display name")
	cmd.Flags().StringP("password", "p", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			token, err := e.db.Login(cmd.Context(), email, password, e.cfg.TokenTTL)
			if err != nil {
				return err
			}
			if err := e.db.Credentials().SaveToken(token); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			e.log.Info("logged in", "email", db.NormalizeEmail(email))
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", db.NormalizeEmail(email))
			return nil
		},
	}

	cmd.Flags().StringP("email", "e", "", "Account email")
	cmd.Flags().StringP("password", "p", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.db.Credentials().ClearToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := currentUser(cmd.Context(), e.db)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.Email)
			return nil
		},
	}
}

func assignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign [content]",
		Short: "Assign a task to another user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			due, _ := cmd.Flags().GetString("due")

			deadline, err := parseDeadline(due, time.Now())
			if err != nil {
				return err
			}

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := currentUser(cmd.Context(), e.db)
			if err != nil {
				return err
			}
			task, err := e.db.CreateTask(cmd.Context(), u.Email, to, args[0], deadline)
			if err != nil {
				return err
			}
			e.log.Info("task assigned", "id", task.ID, "to", task.AssignedTo, "by", task.AssignedBy)
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to %s, due %s\n",
				task.ID, task.AssignedTo, task.Deadline.Local().Format("Jan 2, 2006 3:04 PM"))
			return nil
		},
	}

	cmd.Flags().StringP("to", "t", "", "Assignee email")
	cmd.Flags().StringP("due", "d", "", "Deadline (2006-01-02, \"2006-01-02 15:04\" or RFC 3339)")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("due")

	return cmd
}

func currentUser(ctx context.Context, database *db.DB) (*models.User, error) {
	u, err := db.NewClient(database, tokenOrEmpty(database)).CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New("not logged in; run `taskdash login` first")
	}
	return u, nil
}

func tokenOrEmpty(database *db.DB) string {
	token, _ := database.Credentials().Token()
	return token
}

// parseDeadline accepts a date (meaning the end of that day), a local date
// and time, or an RFC 3339 timestamp
func parseDeadline(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t.AddDate(0, 0, 1).Add(-time.Second), nil
	}
	return time.Time{}, fmt.Errorf("invalid deadline %q", s)
}
