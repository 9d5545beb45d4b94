package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"librarium/internal/config"
	"librarium/internal/database"
	"librarium/internal/database/books"
	"librarium/internal/database/members"
	"librarium/internal/entities"
)

// SeedCommand populates an empty database with a small sample catalog and
// a sample student account, useful for local development.
type SeedCommand struct {
	DatabasePath string
	Verbose      bool
	DryRun       bool
}

func NewSeedCommand() *SeedCommand {
	return &SeedCommand{}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be created without making changes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Populate the database with a sample catalog and a sample student.\n")
		fmt.Fprintf(os.Stderr, "Existing books and members are left untouched.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func sampleBooks() []entities.Book {
	return []entities.Book{
		{
			Title:           "Python Programming",
			Author:          "John Smith",
			ISBN:            "978-0-123456-78-9",
			Publisher:       "Tech Books",
			PublicationYear: 2020,
			Category:        "Programming",
			Description:     "Complete guide to Python programming",
			TotalCopies:     3,
			Location:        "A1-101",
		},
		{
			Title:           "Data Structures and Algorithms",
			Author:          "Jane Doe",
			ISBN:            "978-0-234567-89-0",
			Publisher:       "Computer Science Press",
			PublicationYear: 2019,
			Category:        "Computer Science",
			Description:     "Fundamental concepts of data structures",
			TotalCopies:     2,
			Location:        "B2-205",
		},
		{
			Title:           "Web Development with Flask",
			Author:          "Mike Johnson",
			ISBN:            "978-0-345678-90-1",
			Publisher:       "Web Dev Books",
			PublicationYear: 2021,
			Category:        "Web Development",
			Description:     "Learn Flask web framework",
			TotalCopies:     1,
			Location:        "C3-301",
		},
	}
}

func (cmd *SeedCommand) Run() error {
	fmt.Println("Database Seed")
	fmt.Println("=============")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	catalog := sampleBooks()
	student := entities.Member{
		Username: "student1",
		Email:    "student1@college.edu",
		FullName: "Alice Student",
		Phone:    "123-456-7890",
		Address:  "123 College Street",
		Role:     entities.MemberRoleStudent,
	}

	if cmd.DryRun {
		for _, book := range catalog {
			fmt.Printf("  would add %q by %s (%d copies)\n", book.Title, book.Author, book.TotalCopies)
		}
		fmt.Printf("  would add member %q (%s)\n", student.Username, student.Email)
		fmt.Println("\nDry run complete. Use without -dry-run to seed.")
		return nil
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}
	cmd.DatabasePath = absDBPath

	fmt.Printf("Database: %s\n\n", cmd.DatabasePath)

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	booksRepo := books.NewRepository(db.DB)
	membersRepo := members.NewRepository(db.DB)

	var added, skipped int
	for i := range catalog {
		_, err := booksRepo.AddBook(&catalog[i])
		switch {
		case errors.Is(err, books.ErrDuplicateISBN):
			skipped++
			if cmd.Verbose {
				fmt.Printf("  [SKIP] %q already in catalog\n", catalog[i].Title)
			}
		case err != nil:
			return fmt.Errorf("failed to add %q: %w", catalog[i].Title, err)
		default:
			added++
			if cmd.Verbose {
				fmt.Printf("  [OK] %q\n", catalog[i].Title)
			}
		}
	}

	memberAdded := false
	if _, err := membersRepo.CreateMember(&student); err != nil {
		if !errors.Is(err, members.ErrMemberExists) {
			return fmt.Errorf("failed to add sample member: %w", err)
		}
		if cmd.Verbose {
			fmt.Printf("  [SKIP] member %q already exists\n", student.Username)
		}
	} else {
		memberAdded = true
		if cmd.Verbose {
			fmt.Printf("  [OK] member %q\n", student.Username)
		}
	}

	fmt.Println("\n=== Seed Summary ===")
	fmt.Printf("Books added: %d (skipped %d)\n", added, skipped)
	if memberAdded {
		fmt.Printf("Member added: %s\n", student.Username)
	} else {
		fmt.Printf("Member: %s already exists\n", student.Username)
	}

	fmt.Println("\nSeed complete!")
	return nil
}
