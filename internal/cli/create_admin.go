package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"librarium/internal/auth"
	"librarium/internal/config"
	"librarium/internal/database"
	"librarium/internal/database/members"
	"librarium/internal/entities"
)

// CreateAdminCommand creates an administrator account from the terminal,
// for deployments where /setup is unreachable or already completed.
type CreateAdminCommand struct {
	DatabasePath string
	Username     string
	Email        string
	FullName     string
	Password     string
}

func NewCreateAdminCommand() *CreateAdminCommand {
	return &CreateAdminCommand{}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.Username, "username", "", "Admin username (required)")
	fs.StringVar(&cmd.Email, "email", "", "Admin email (required)")
	fs.StringVar(&cmd.FullName, "name", "", "Admin full name")
	fs.StringVar(&cmd.Password, "password", "", "Admin password (prompted when omitted)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin -username <name> -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an administrator account.\n\n")
		fmt.Fprintf(os.Stderr, "When -password is omitted the password is read from the terminal\n")
		fmt.Fprintf(os.Stderr, "without echoing, which keeps it out of the shell history.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}

	return nil
}

func (cmd *CreateAdminCommand) readPassword() (string, error) {
	fmt.Printf("Password (min %d characters): ", auth.MinPasswordLength)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}

func (cmd *CreateAdminCommand) Run() error {
	password := cmd.Password
	if password == "" {
		var err error
		password, err = cmd.readPassword()
		if err != nil {
			return err
		}
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewDatabase(absDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	cfg := config.NewConfig()
	service := auth.NewService(db.DB, members.NewRepository(db.DB), cfg.Auth)

	admin, err := service.RegisterMember(&entities.Member{
		Username: cmd.Username,
		Email:    cmd.Email,
		FullName: cmd.FullName,
		Role:     entities.MemberRoleAdmin,
	}, password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	fmt.Printf("Administrator %q created (id %d)\n", admin.Username, admin.ID)
	return nil
}
