package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/termgate/termgate/internal/model"
	"github.com/termgate/termgate/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create, list, and delete accounts in the local credential store without going through the login gate.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserDeleteCmd())
	cmd.AddCommand(newUserPasswdCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		username string
		password string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user account",
		Example: `  termgate user create --username bob --role user
  termgate user create --username alice --role admin  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(username, password, role)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "Role: admin or user")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runUserCreate(username, password, roleName string) error {
	role := model.Role(roleName)
	if !role.Valid() {
		return fmt.Errorf("invalid role %q (want admin or user)", roleName)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	if password == "" {
		password, err = promptNewPassword(cfg.Auth.MinPasswordLength)
		if err != nil {
			return err
		}
	} else if len(password) < cfg.Auth.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", cfg.Auth.MinPasswordLength)
	}

	credStore, err := openCredentialStore(logger)
	if err != nil {
		return err
	}
	if err := credStore.Create(username, password, role); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("user %q already exists", username)
		}
		return fmt.Errorf("create user: %w", err)
	}

	if auditStore, aerr := openAuditStore(logger); aerr == nil {
		auditStore.Log("USER_CREATE", username, "SUCCESS", "created via cli")
		auditStore.Close()
	}

	fmt.Printf("Created user %q with role %s\n", username, role)
	return nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	credStore, err := openCredentialStore(logger)
	if err != nil {
		return err
	}
	entries, err := credStore.List()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if jsonOutput {
		type userRow struct {
			Username  string  `json:"username"`
			Level     string  `json:"level"`
			Created   string  `json:"created"`
			LastLogin *string `json:"last_login"`
		}
		rows := make([]userRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, userRow{e.Username, string(e.Level), e.Created, e.LastLogin})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(entries) == 0 {
		fmt.Println("No users in the store. Run 'termgate login' once to seed the admin account.")
		return nil
	}

	fmt.Printf("%-20s %-10s %-20s %-20s\n", "USERNAME", "LEVEL", "CREATED", "LAST LOGIN")
	fmt.Printf("%-20s %-10s %-20s %-20s\n", "--------", "-----", "-------", "----------")
	for _, e := range entries {
		lastLogin := "never"
		if e.LastLogin != nil {
			lastLogin = *e.LastLogin
		}
		fmt.Printf("%-20s %-10s %-20s %-20s\n", e.Username, e.Level, e.Created, lastLogin)
	}

	return nil
}

// ---------- user delete ----------

func newUserDeleteCmd() *cobra.Command {
	var (
		username string
		acting   string
	)

	cmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm"},
		Short:   "Delete a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserDelete(username, acting)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username to delete (required)")
	cmd.Flags().StringVar(&acting, "as", store.SeedUsername, "Acting username (self-deletion is refused)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runUserDelete(username, acting string) error {
	if username == acting {
		return fmt.Errorf("refusing to delete the acting account %q", acting)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	credStore, err := openCredentialStore(logger)
	if err != nil {
		return err
	}
	if err := credStore.Delete(username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if auditStore, aerr := openAuditStore(logger); aerr == nil {
		auditStore.Log("USER_DELETE", acting, "SUCCESS", "deleted "+username)
		auditStore.Close()
	}

	fmt.Printf("Deleted user %q\n", username)
	return nil
}

// ---------- user passwd ----------

func newUserPasswdCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change a user's password",
		Long:  "Change a password after verifying the current one. All three entries are prompted without echo.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserPasswd(username)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runUserPasswd(username string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	oldPassword, err := readPassword("Current password: ")
	if err != nil {
		return err
	}
	newPassword, err := readPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm new password: ")
	if err != nil {
		return err
	}
	if len(newPassword) < cfg.Auth.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", cfg.Auth.MinPasswordLength)
	}

	credStore, err := openCredentialStore(logger)
	if err != nil {
		return err
	}
	if err := credStore.ChangePassword(username, oldPassword, newPassword, confirm); err != nil {
		switch {
		case errors.Is(err, store.ErrMismatch):
			return fmt.Errorf("new passwords do not match")
		case errors.Is(err, store.ErrWrongPassword):
			return fmt.Errorf("current password is incorrect")
		default:
			return fmt.Errorf("change password: %w", err)
		}
	}

	if auditStore, aerr := openAuditStore(logger); aerr == nil {
		auditStore.Log("PASSWORD_CHANGE", username, "SUCCESS", "changed via cli")
		auditStore.Close()
	}

	fmt.Printf("Password changed for %q\n", username)
	return nil
}
