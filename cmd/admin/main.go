// Command admin creates users directly against the database. It exists to
// bootstrap the first administrator; further accounts can be registered
// through the API.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/vposukhov/authvault/internal/server/auth"
	"github.com/vposukhov/authvault/internal/server/config"
	"github.com/vposukhov/authvault/internal/server/models"
	"github.com/vposukhov/authvault/internal/server/repositories/repomanager"
)

func main() {
	var (
		dsn      string
		username string
		email    string
		roleName string
	)

	defaults := &config.Config{}
	defaults.LoadDefaults()

	flag.StringVar(&dsn, "d", defaults.DatabaseDSN, "database DSN")
	flag.StringVar(&username, "u", "", "username (required)")
	flag.StringVar(&email, "e", "", "email (required)")
	flag.StringVar(&roleName, "role", "admin", "role: admin, user or viewer")
	flag.Parse()

	if username == "" || email == "" {
		flag.Usage()
		os.Exit(2)
	}

	role, err := models.ParseRole(roleName)
	if err != nil {
		log.Fatal(err)
	}

	password, err := promptPassword()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	db, err := repomanager.OpenDB(ctx, dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatal(err)
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		log.Fatal(err)
	}

	user, err := rm.Users(db).Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       models.StatusActive,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("created user %s (id=%s, role=%s)\n", user.Username, user.ID, user.Role)
}

// promptPassword reads the password twice without echo and requires both
// entries to match.
func promptPassword() ([]byte, error) {
	fmt.Print("Enter password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}

	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(first, second) {
		return nil, fmt.Errorf("passwords do not match")
	}
	if len(first) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}
	return first, nil
}
