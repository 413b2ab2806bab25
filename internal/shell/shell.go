// Package shell renders the role-gated admin menu after a successful
// login. It is a thin caller of the credential store and audit trail: all
// menu branches either shell out to OS utilities or delegate to store
// operations, and no authentication logic lives here.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/termgate/termgate/internal/audit"
	"github.com/termgate/termgate/internal/model"
	"github.com/termgate/termgate/internal/store"
)

// PasswordReader prompts for a password without echoing it.
type PasswordReader func(prompt string) (string, error)

// Shell is one logged-in user's menu session.
type Shell struct {
	Username string
	Role     model.Role

	Store  *store.Store
	Audit  *audit.Store
	Logger *slog.Logger

	// MinPasswordLength applies to passwords set through the menu.
	MinPasswordLength int

	In           *bufio.Reader
	Out          io.Writer
	ReadPassword PasswordReader
}

// Run drives the main menu until the user logs out or input ends.
func (sh *Shell) Run(ctx context.Context) error {
	for {
		sh.header("MAIN MENU")
		fmt.Fprintf(sh.Out, "  Logged in as %s (%s)\n\n", sh.Username, sh.Role)
		fmt.Fprintln(sh.Out, "  1. System Information")
		fmt.Fprintln(sh.Out, "  2. File Operations")
		fmt.Fprintln(sh.Out, "  3. Network Tools")
		fmt.Fprintln(sh.Out, "  4. Package Manager")
		if sh.Role == model.RoleAdmin {
			fmt.Fprintln(sh.Out, "  5. User Management")
			fmt.Fprintln(sh.Out, "  6. View Logs")
		} else {
			fmt.Fprintln(sh.Out, "  5. Change Password")
			fmt.Fprintln(sh.Out, "  6. About")
		}
		fmt.Fprintln(sh.Out, "  0. Logout")
		fmt.Fprintln(sh.Out, strings.Repeat("=", 50))

		choice, err := sh.prompt("Select [0-6]: ")
		if err != nil {
			return err
		}

		switch choice {
		case "0":
			sh.printColor("Logged out.", colorGreen)
			return nil
		case "1":
			sh.systemInfo(ctx)
		case "2":
			sh.fileOperations(ctx)
		case "3":
			sh.networkTools(ctx)
		case "4":
			sh.packageManager(ctx)
		case "5":
			if sh.Role == model.RoleAdmin {
				if err := sh.userManagement(); err != nil {
					return err
				}
			} else {
				sh.changePassword()
			}
		case "6":
			if sh.Role == model.RoleAdmin {
				sh.viewLogs(ctx)
			} else {
				sh.about()
			}
		default:
			sh.printColor("No such option.", colorYellow)
		}
	}
}

// ---------- submenus ----------

func (sh *Shell) systemInfo(ctx context.Context) {
	for {
		sh.header("SYSTEM INFORMATION")
		fmt.Fprintln(sh.Out, "  1. OS Info")
		fmt.Fprintln(sh.Out, "  2. Disk Usage")
		fmt.Fprintln(sh.Out, "  3. Memory Info")
		fmt.Fprintln(sh.Out, "  4. Process List")
		fmt.Fprintln(sh.Out, "  5. Back")

		choice, err := sh.prompt("Select [1-5]: ")
		if err != nil {
			return
		}
		switch choice {
		case "1":
			sh.run(ctx, "uname", "-a")
		case "2":
			sh.run(ctx, "df", "-h")
		case "3":
			sh.run(ctx, "free", "-m")
		case "4":
			sh.runPipeline(ctx, "ps aux | head -20")
		case "5":
			return
		default:
			continue
		}
		sh.pause()
	}
}

func (sh *Shell) fileOperations(ctx context.Context) {
	for {
		sh.header("FILE OPERATIONS")
		fmt.Fprintln(sh.Out, "  1. List Files")
		fmt.Fprintln(sh.Out, "  2. Create Directory")
		fmt.Fprintln(sh.Out, "  3. Delete File")
		fmt.Fprintln(sh.Out, "  4. View File")
		fmt.Fprintln(sh.Out, "  5. Back")

		choice, err := sh.prompt("Select [1-5]: ")
		if err != nil {
			return
		}
		switch choice {
		case "1":
			sh.run(ctx, "ls", "-la")
		case "2":
			name, err := sh.prompt("Directory name: ")
			if err != nil || name == "" {
				continue
			}
			sh.run(ctx, "mkdir", name)
		case "3":
			name, err := sh.prompt("File name: ")
			if err != nil || name == "" {
				continue
			}
			sh.run(ctx, "rm", "-i", name)
		case "4":
			name, err := sh.prompt("File name: ")
			if err != nil || name == "" {
				continue
			}
			sh.run(ctx, "cat", name)
		case "5":
			return
		default:
			continue
		}
		sh.pause()
	}
}

func (sh *Shell) networkTools(ctx context.Context) {
	sh.header("NETWORK TOOLS")
	fmt.Fprintln(sh.Out, "  1. Show IP Addresses")
	fmt.Fprintln(sh.Out, "  2. Ping Test")
	fmt.Fprintln(sh.Out, "  3. Back")

	choice, err := sh.prompt("Select [1-3]: ")
	if err != nil {
		return
	}
	switch choice {
	case "1":
		sh.run(ctx, "ip", "addr")
	case "2":
		host, err := sh.prompt("Host: ")
		if err != nil || host == "" {
			return
		}
		sh.run(ctx, "ping", "-c", "4", host)
	default:
		return
	}
	sh.pause()
}

func (sh *Shell) packageManager(ctx context.Context) {
	sh.header("PACKAGE MANAGER")
	fmt.Fprintln(sh.Out, "  1. Install Package")
	fmt.Fprintln(sh.Out, "  2. Update System")
	fmt.Fprintln(sh.Out, "  3. Back")

	choice, err := sh.prompt("Select [1-3]: ")
	if err != nil {
		return
	}
	switch choice {
	case "1":
		pkg, err := sh.prompt("Package name: ")
		if err != nil || pkg == "" {
			return
		}
		sh.run(ctx, "pkg", "install", pkg)
	case "2":
		sh.runPipeline(ctx, "pkg update && pkg upgrade")
	default:
		return
	}
	sh.pause()
}

// ---------- user administration ----------

func (sh *Shell) userManagement() error {
	for {
		sh.header("USER MANAGEMENT")
		fmt.Fprintln(sh.Out, "  1. Create User")
		fmt.Fprintln(sh.Out, "  2. List Users")
		fmt.Fprintln(sh.Out, "  3. Delete User")
		fmt.Fprintln(sh.Out, "  4. Back")

		choice, err := sh.prompt("Select [1-4]: ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			sh.createUser()
		case "2":
			sh.listUsers()
		case "3":
			sh.deleteUser()
		case "4":
			return nil
		}
	}
}

func (sh *Shell) createUser() {
	username, err := sh.prompt("New username: ")
	if err != nil || username == "" {
		return
	}
	password, err := sh.ReadPassword("Password: ")
	if err != nil {
		return
	}
	confirm, err := sh.ReadPassword("Confirm password: ")
	if err != nil {
		return
	}
	if password != confirm {
		sh.printColor("Passwords do not match.", colorRed)
		return
	}
	if len(password) < sh.MinPasswordLength {
		sh.printColor(fmt.Sprintf("Password must be at least %d characters.", sh.MinPasswordLength), colorRed)
		return
	}

	if err := sh.Store.Create(username, password, model.RoleUser); err != nil {
		sh.printColor(err.Error(), colorRed)
		return
	}
	if sh.Audit != nil {
		sh.Audit.Log("USER_CREATE", sh.Username, "SUCCESS", "created "+username)
	}
	sh.printColor(fmt.Sprintf("User %q created.", username), colorGreen)
}

func (sh *Shell) listUsers() {
	entries, err := sh.Store.List()
	if err != nil {
		sh.printColor(err.Error(), colorRed)
		return
	}

	fmt.Fprintf(sh.Out, "\n%-20s %-10s %-20s %-20s\n", "USERNAME", "LEVEL", "CREATED", "LAST LOGIN")
	fmt.Fprintln(sh.Out, strings.Repeat("=", 72))
	for _, e := range entries {
		lastLogin := "never"
		if e.LastLogin != nil {
			lastLogin = *e.LastLogin
		}
		fmt.Fprintf(sh.Out, "%-20s %-10s %-20s %-20s\n", e.Username, e.Level, e.Created, lastLogin)
	}
	sh.pause()
}

func (sh *Shell) deleteUser() {
	username, err := sh.prompt("Username to delete: ")
	if err != nil || username == "" {
		return
	}
	// Self-delete is rejected before the store is consulted.
	if username == sh.Username {
		sh.printColor("You cannot delete your own account.", colorRed)
		return
	}

	if err := sh.Store.Delete(username); err != nil {
		sh.printColor(err.Error(), colorRed)
		return
	}
	if sh.Audit != nil {
		sh.Audit.Log("USER_DELETE", sh.Username, "SUCCESS", "deleted "+username)
	}
	sh.printColor(fmt.Sprintf("User %q deleted.", username), colorGreen)
}

func (sh *Shell) changePassword() {
	sh.header("CHANGE PASSWORD")

	oldPass, err := sh.ReadPassword("Current password: ")
	if err != nil {
		return
	}
	newPass, err := sh.ReadPassword("New password: ")
	if err != nil {
		return
	}
	confirm, err := sh.ReadPassword("Confirm new password: ")
	if err != nil {
		return
	}
	if len(newPass) < sh.MinPasswordLength {
		sh.printColor(fmt.Sprintf("Password must be at least %d characters.", sh.MinPasswordLength), colorRed)
		return
	}

	if err := sh.Store.ChangePassword(sh.Username, oldPass, newPass, confirm); err != nil {
		sh.printColor(err.Error(), colorRed)
		return
	}
	if sh.Audit != nil {
		sh.Audit.Log("PASSWORD_CHANGE", sh.Username, "SUCCESS", "")
	}
	sh.printColor("Password changed.", colorGreen)
}

func (sh *Shell) viewLogs(ctx context.Context) {
	sh.header("SYSTEM LOGS")
	if sh.Audit == nil {
		sh.printColor("Audit log is not available.", colorYellow)
		return
	}

	events, err := sh.Audit.Tail(ctx, 20)
	if err != nil {
		sh.printColor(err.Error(), colorRed)
		return
	}
	if len(events) == 0 {
		fmt.Fprintln(sh.Out, "No events recorded yet.")
	}
	for _, ev := range events {
		fmt.Fprintln(sh.Out, ev.String())
	}
	sh.pause()
}

func (sh *Shell) about() {
	sh.header("ABOUT")
	fmt.Fprintln(sh.Out, "termgate - terminal login gate and admin shell")
	fmt.Fprintln(sh.Out, "")
	fmt.Fprintln(sh.Out, "Features:")
	fmt.Fprintln(sh.Out, "  - local credential store with lockout")
	fmt.Fprintln(sh.Out, "  - role-gated system menus")
	fmt.Fprintln(sh.Out, "  - persistent audit trail")
	sh.pause()
}

// ---------- plumbing ----------

func (sh *Shell) prompt(label string) (string, error) {
	fmt.Fprint(sh.Out, label)
	line, err := sh.In.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (sh *Shell) pause() {
	fmt.Fprint(sh.Out, "\nPress Enter to continue...")
	sh.In.ReadString('\n')
}

func (sh *Shell) header(title string) {
	fmt.Fprintln(sh.Out, strings.Repeat("=", 50))
	fmt.Fprintf(sh.Out, "%s    %s%s\n", colorCyan, title, colorReset)
	fmt.Fprintln(sh.Out, strings.Repeat("=", 50))
}

func (sh *Shell) printColor(text, color string) {
	fmt.Fprintf(sh.Out, "%s%s%s\n", color, text, colorReset)
}

func (sh *Shell) run(ctx context.Context, name string, args ...string) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = sh.Out
	cmd.Stderr = sh.Out
	if err := cmd.Run(); err != nil {
		sh.Logger.Debug("command failed", "command", name, "error", err)
	}
}

// runPipeline is for the few menu entries that genuinely need shell
// syntax (pipes, &&). Everything user-supplied goes through run instead,
// as direct argv, so no input is ever interpolated into a shell line.
func (sh *Shell) runPipeline(ctx context.Context, line string) {
	cmd := exec.CommandContext(ctx, "sh", "-c", line)
	cmd.Stdin = os.Stdin
	cmd.Stdout = sh.Out
	cmd.Stderr = sh.Out
	if err := cmd.Run(); err != nil {
		sh.Logger.Debug("command failed", "command", line, "error", err)
	}
}
