package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/quotaglass/quotaglass/internal/applog"
	"github.com/quotaglass/quotaglass/internal/config"
	"github.com/quotaglass/quotaglass/internal/db"
	"github.com/quotaglass/quotaglass/internal/ui"
)

func openDB() (*db.DB, error) {
	dbPath := config.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, err
	}
	store, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return pw, err
}

func main() {
	if len(os.Args) >= 3 && os.Args[1] == "adduser" {
		username := os.Args[2]
		pw, err := readPassword(fmt.Sprintf("Password for %s: ", username))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		hash, err := bcrypt.GenerateFromPassword(pw, bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		store, err := openDB()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		if _, err := store.CreateAccount(username, string(hash)); err != nil {
			fmt.Fprintf(os.Stderr, "error creating account: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Account created: %s\n", username)
		return
	}

	if len(os.Args) >= 3 && os.Args[1] == "passwd" {
		username := os.Args[2]
		pw, err := readPassword(fmt.Sprintf("New password for %s: ", username))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		hash, err := bcrypt.GenerateFromPassword(pw, bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		store, err := openDB()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.UpdateAccountPassword(username, string(hash)); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Password updated: %s\n", username)
		return
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load config: %v\n", err)
		cfg = config.Defaults()
	}

	if cfg.Webserver.Enabled {
		if err := config.EnsureJWTSecret(config.DefaultPath(), &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not persist JWT secret: %v\n", err)
		}
	}

	logger, logCloser, err := applog.Init(applog.InitConfig{
		LogDir:   config.LogDir(),
		LogLevel: cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not init log file: %v\n", err)
		logger = slog.Default() // falls back to default (stderr)
	} else {
		defer logCloser.Close()
	}

	store, err := openDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	app := ui.NewApp(store, cfg, logger)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
