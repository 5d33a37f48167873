// Command bootstrap-account seeds a viewer account in the datastore. It is
// the provisioning path for deployments that run with signup disabled.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"reelroom/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		email       string
		displayName string
		password    string
	)

	flag.StringVar(&jsonPath, "json", "", "Path to the JSON datastore (store.json)")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&email, "email", "", "Email address for the account")
	flag.StringVar(&displayName, "name", "Viewer", "Display name for the account")
	flag.StringVar(&password, "password", "", "Password for the account")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}
	if strings.TrimSpace(displayName) == "" {
		fatalf("--name cannot be empty")
	}

	repo, err := openRepository(jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer closeRepository(repo)

	user, err := repo.CreateUser(storage.CreateUserParams{
		DisplayName: strings.TrimSpace(displayName),
		Email:       strings.TrimSpace(email),
		Password:    password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailInUse) {
			fatalf("an account with email %s already exists", strings.TrimSpace(email))
		}
		fatalf("create account: %v", err)
	}

	fmt.Printf("Account %s (%s) created successfully.\n", user.Email, user.DisplayName)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(jsonPath, postgresDSN string) (storage.Repository, error) {
	if jsonPath != "" {
		return storage.NewStorage(jsonPath)
	}
	return storage.NewPostgresRepository(postgresDSN)
}

func closeRepository(repo storage.Repository) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = repo.Close(ctx)
}
