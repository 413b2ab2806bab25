package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/termgate/termgate/internal/auth"
	"github.com/termgate/termgate/internal/shell"
)

const banner = `
 _____ ___ ___ __  __ ___   _ _____ ___
|_   _| __| _ \  \/  / __| /_\_   _| __|
  | | | _||   / |\/| | (_ |/ _ \| | | _|
  |_| |___|_|_\_|  |_|\___/_/ \_\_| |___|
`

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and enter the admin menu shell",
		Long: `Start the interactive login gate. After three consecutive failed attempts
a username is locked for the remainder of the process; a correct password
does not bypass an active lock.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin()
		},
	}
}

func runLogin() error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	credStore, err := openCredentialStore(logger)
	if err != nil {
		return err
	}
	// First run: persist the seeded admin record.
	if err := credStore.Init(); err != nil {
		return fmt.Errorf("initialize credential store: %w", err)
	}

	auditStore, err := openAuditStore(logger)
	if err != nil {
		return err
	}
	defer auditStore.Close()

	session, err := auth.NewSession(credStore, maxAttempts(cfg), auditStore, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	in := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("Username: ")
		line, err := in.ReadString('\n')
		if err != nil {
			return nil
		}
		username := strings.TrimSpace(line)
		if username == "" {
			continue
		}

		// Locked accounts are refused before the password prompt; no
		// attempt is consumed.
		if session.IsLocked(username) {
			fmt.Println("\033[1;31mAccount locked! Try again later.\033[0m")
			if !askRetry(in) {
				return nil
			}
			continue
		}

		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		outcome, err := session.Attempt(username, password)
		switch {
		case err == nil:
			fmt.Println("\033[1;32m\nLogin successful!\033[0m")

			sh := &shell.Shell{
				Username:          username,
				Role:              outcome.Role,
				Store:             credStore,
				Audit:             auditStore,
				Logger:            logger,
				MinPasswordLength: cfg.Auth.MinPasswordLength,
				In:                in,
				Out:               os.Stdout,
				ReadPassword:      readPassword,
			}
			if err := sh.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("menu shell ended with error", "error", err)
			}
			session.Logout(username)

			// The shell may have created users or changed passwords.
			if err := session.Reload(); err != nil {
				return err
			}

		case errors.Is(err, auth.ErrLocked):
			fmt.Println("\033[1;31m\nAccount locked! Try again later.\033[0m")

		case errors.Is(err, auth.ErrInvalidCredentials):
			fmt.Printf("\033[1;31m\nLogin failed! Attempts remaining: %d\033[0m\n", outcome.Remaining)

		default:
			return err
		}

		if !askRetry(in) {
			return nil
		}
	}
}

func askRetry(in *bufio.Reader) bool {
	fmt.Print("\nLog in again? (y/n): ")
	line, err := in.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
