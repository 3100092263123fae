// Command admin bootstraps EasyStock administrators.
//
//	admin create-admin -name "Jane Doe" -email jane@example.com
//	admin promote -email jane@example.com
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	database "github.com/FACorreiaa/easystock/app/db"
	appLogger "github.com/FACorreiaa/easystock/app/logger"
	"github.com/FACorreiaa/easystock/config"
	"github.com/FACorreiaa/easystock/internal/api/auth"
)

// readPassword is swapped in tests to avoid touching the terminal.
var readPassword = term.ReadPassword

const usage = `usage:
  admin create-admin -name NAME -email EMAIL
  admin promote -email EMAIL`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := appLogger.New(out, cfg.Mode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		return err
	}
	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	repo := auth.NewPostgresAuthRepo(pool, logger)

	switch args[0] {
	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		password, err := promptPassword(out)
		if err != nil {
			return err
		}
		user, err := createAdmin(ctx, repo, auth.OptionsFromConfig(&cfg).Password, *name, *email, password)
		if err != nil {
			return err
		}
		logger.Info("Admin user created", slog.String("id", user.ID.String()), slog.String("email", user.Email))
		return nil

	case "promote":
		fs := flag.NewFlagSet("promote", flag.ContinueOnError)
		email := fs.String("email", "", "email address")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if err := promote(ctx, repo, *email); err != nil {
			return err
		}
		logger.Info("User promoted to admin", slog.String("email", *email))
		return nil

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

// promptPassword reads the password twice without echo.
func promptPassword(w io.Writer) ([]byte, error) {
	fmt.Fprint(w, "Password: ")
	password, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(w, "Confirm password: ")
	confirm, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if !bytes.Equal(password, confirm) {
		return nil, errors.New("passwords do not match")
	}
	return password, nil
}
