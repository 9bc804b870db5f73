package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/good-yellow-bee/incidentdesk/internal/auth"
	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/security"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

var (
	userUsername string
	userEmail    string
	userFullName string
	userRole     string
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
	Long: `Commands for managing incidentdesk accounts.

These commands operate directly on the database and are intended for
administrators provisioning accounts outside of the API.

Examples:
  # List all users
  deskctl user list

  # Create a developer
  deskctl user create --username sam --full-name "Sam Lee" --role developer

  # Change a user's password
  deskctl user passwd --username sam

  # Lock an account out and end its sessions
  deskctl user deactivate --username sam`,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openDatabase(ctx, false)
		if err != nil {
			return err
		}
		defer store.Close()

		userList, err := store.Users().List(ctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return printUsers(cmd.OutOrStdout(), userList)
	},
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long: `Create a new user in the database.

The password is prompted interactively so it stays out of shell history.

Password requirements:
  - Minimum 8 characters
  - At least 1 uppercase letter, 1 lowercase letter and 1 digit
  - At least 1 special character (!@#$%^&*...)

Available roles:
  - administrator
  - incident_manager
  - developer
  - viewer

Example:
  deskctl user create --username jane --email jane@example.com --role incident_manager`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptNewPassword("Enter password: ", "Confirm password: ")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openDatabase(ctx, false)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := createUser(ctx, store.Users(), newUserParams{
			Username: userUsername,
			Email:    userEmail,
			FullName: userFullName,
			Role:     userRole,
			Password: password,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nUser created successfully:\n")
		fmt.Fprintf(out, "  ID:       %d\n", user.ID)
		fmt.Fprintf(out, "  Username: %s\n", user.Username)
		fmt.Fprintf(out, "  Role:     %s\n", user.Role)
		return nil
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change a user's password",
	Long: `Change the password for an existing user. Stored sessions of the
user are revoked.

Example:
  deskctl user passwd --username admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openDatabase(ctx, false)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := findUser(ctx, store.Users(), userUsername)
		if err != nil {
			return err
		}

		password, err := promptNewPassword("Enter new password: ", "Confirm new password: ")
		if err != nil {
			return err
		}
		if err := setPassword(ctx, store.Users(), user, password); err != nil {
			return err
		}

		revokeSessions(ctx, store.Sessions(), user.ID)

		fmt.Fprintf(cmd.OutOrStdout(), "\nPassword changed successfully for user '%s'.\n", user.Username)
		return nil
	},
}

var userActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Allow a user to sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetActive(cmd, true)
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Prevent a user from signing in and end their sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetActive(cmd, false)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd, userCreateCmd, userPasswdCmd, userActivateCmd, userDeactivateCmd)

	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "username for the new user (required)")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email for the new user")
	userCreateCmd.Flags().StringVar(&userFullName, "full-name", "", "display name for the new user")
	userCreateCmd.Flags().StringVar(&userRole, "role", "viewer", "role: administrator, incident_manager, developer or viewer")
	userCreateCmd.MarkFlagRequired("username")

	for _, c := range []*cobra.Command{userPasswdCmd, userActivateCmd, userDeactivateCmd} {
		c.Flags().StringVar(&userUsername, "username", "", "username of the user to update (required)")
		c.MarkFlagRequired("username")
	}
}

type newUserParams struct {
	Username string
	Email    string
	FullName string
	Role     string
	Password string
}

// createUser validates params and stores a new active user.
func createUser(ctx context.Context, users storage.UserRepository, p newUserParams) (*models.User, error) {
	username := strings.TrimSpace(p.Username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("invalid username: use 3-50 letters, digits, '.', '_' or '-'")
	}
	role := models.ParseRole(p.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", p.Role)
	}
	if err := auth.ValidatePassword(p.Password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	existing, err := users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("username '%s' already exists", username)
	}

	user := models.NewUser(username, strings.TrimSpace(p.Email), strings.TrimSpace(p.FullName), role)
	user.PasswordHash, user.Salt, err = security.NewCredentials(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func findUser(ctx context.Context, users storage.UserRepository, username string) (*models.User, error) {
	user, err := users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user '%s' not found", username)
	}
	return user, nil
}

func setPassword(ctx context.Context, users storage.UserRepository, user *models.User, password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}
	hash, salt, err := security.NewCredentials(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.Salt = salt
	user.UpdatedAt = time.Now().UTC()
	if err := users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func runSetActive(cmd *cobra.Command, active bool) error {
	ctx := cmd.Context()
	store, err := openDatabase(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := findUser(ctx, store.Users(), userUsername)
	if err != nil {
		return err
	}
	user.SetActive(active)
	user.UpdatedAt = time.Now().UTC()
	if err := store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	state := "activated"
	if !active {
		state = "deactivated"
		revokeSessions(ctx, store.Sessions(), user.ID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User '%s' %s.\n", user.Username, state)
	return nil
}

// revokeSessions ends stored sessions. Signed tokens expire on their own
// and are rejected once the account is inactive.
func revokeSessions(ctx context.Context, sessions storage.SessionRepository, userID int64) {
	n, err := sessions.DeleteForUser(ctx, userID)
	if err != nil {
		PrintVerbose("Warning: could not revoke existing sessions: %v", err)
		return
	}
	PrintVerbose("revoked %d stored session(s)", n)
}

func printUsers(w io.Writer, userList []*models.User) error {
	if output == "json" {
		if userList == nil {
			userList = []*models.User{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(userList)
	}

	if len(userList) == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}

	fmt.Fprintf(w, "\n%-6s  %-20s  %-24s  %-18s  %-8s  %s\n",
		"ID", "USERNAME", "NAME", "ROLE", "ACTIVE", "CREATED")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, u := range userList {
		fmt.Fprintf(w, "%-6d  %-20s  %-24s  %-18s  %-8t  %s\n",
			u.ID,
			u.Username,
			u.FullName,
			u.Role,
			u.IsActive(),
			u.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Fprintf(w, "\nTotal: %d user(s)\n", len(userList))
	return nil
}

func promptNewPassword(prompt, confirm string) (string, error) {
	password, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("invalid password: %w", err)
	}
	confirmation, err := promptPassword(confirm)
	if err != nil {
		return "", fmt.Errorf("read password confirmation: %w", err)
	}
	if password != confirmation {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

var stdinReader = bufio.NewReader(os.Stdin)

// promptPassword prompts for a password without echoing to the terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(passwordBytes), nil
	}

	// Piped input
	password, err := stdinReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && password != "") {
		return "", err
	}
	return strings.TrimSpace(password), nil
}
