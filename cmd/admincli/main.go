package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/cafeflow/cafeflow/internal/auth"
	"github.com/cafeflow/cafeflow/internal/domain"
)

// admincli manages admin accounts directly against the database, for
// bootstrapping and recovery when no admin can log in.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		usage(logger)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	repo := auth.NewAdminRepository(db)

	switch command := args[0]; command {
	case "list":
		admins, err := repo.List(ctx)
		if err != nil {
			logger.Error("failed to list admins", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if len(admins) == 0 {
			logger.Info("no admin accounts")
			return
		}
		for _, admin := range admins {
			logger.Info("admin account",
				slog.String("id", admin.ID),
				slog.String("name", admin.Name),
				slog.String("email", admin.Email),
				slog.String("phone", admin.Phone),
			)
		}

	case "create":
		if len(args) != 4 {
			logger.Error("usage: admincli create <name> <email> <password>")
			os.Exit(1)
		}
		if err := createAdmin(ctx, repo, args[1], args[2], args[3]); err != nil {
			logger.Error("failed to create admin", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("admin account created", slog.String("email", args[2]))

	case "reset":
		if len(args) != 4 {
			logger.Error("usage: admincli reset <name> <email> <password>")
			os.Exit(1)
		}
		removed, err := repo.DeleteAll(ctx)
		if err != nil {
			logger.Error("failed to remove admins", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("removed existing admin accounts", slog.Int64("count", removed))
		if err := createAdmin(ctx, repo, args[1], args[2], args[3]); err != nil {
			logger.Error("failed to create admin", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("admin account created", slog.String("email", args[2]))

	case "delete":
		if len(args) != 2 {
			logger.Error("usage: admincli delete <email>")
			os.Exit(1)
		}
		deleted, err := repo.DeleteByEmail(ctx, args[1])
		if err != nil {
			logger.Error("failed to delete admin", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if !deleted {
			logger.Error("no admin found", slog.String("email", args[1]))
			os.Exit(1)
		}
		logger.Info("admin account deleted", slog.String("email", args[1]))

	default:
		logger.Error("unknown command", slog.String("command", command))
		usage(logger)
		os.Exit(1)
	}
}

func createAdmin(ctx context.Context, repo *auth.AdminRepository, name, email, password string) error {
	existing, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("admin with email %s already exists", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return repo.Create(ctx, &domain.Admin{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
}

func usage(logger *slog.Logger) {
	logger.Info("usage: admincli <list|create|reset|delete>")
	logger.Info("  list                            list all admin accounts")
	logger.Info("  create <name> <email> <password>  create a new admin")
	logger.Info("  reset <name> <email> <password>   remove all admins and create one")
	logger.Info("  delete <email>                    delete an admin by email")
}
