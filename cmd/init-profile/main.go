package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/viewdesk/viewdesk/config"
	"github.com/viewdesk/viewdesk/internal/core/auth"
	"github.com/viewdesk/viewdesk/internal/core/profile"
	"github.com/viewdesk/viewdesk/internal/core/validation"
	"github.com/viewdesk/viewdesk/internal/storage/backend"
)

func main() {
	// Read environment variables
	apiKey := os.Getenv("DISCOVER_API_KEY")
	project := os.Getenv("DISCOVER_PROJECT")
	if apiKey == "" || project == "" {
		log.Fatal("DISCOVER_API_KEY and DISCOVER_PROJECT environment variables are required")
	}
	name := os.Getenv("PROFILE_NAME")
	if name == "" {
		name = project
	}

	cfg := config.Load()
	if cfg.Storage.Driver == backend.DriverMemory {
		log.Fatal("STORAGE_DRIVER must be postgres or redis; the memory store does not outlive this command")
	}

	ctx := context.Background()
	kv, closeStore, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Storage.Driver, err)
	}
	defer closeStore()

	profiles := profile.NewService(kv, validation.NewValidator())

	existing, err := profiles.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list profiles: %v", err)
	}
	for _, e := range existing {
		if e.Profile.Name == name {
			fmt.Printf("Profile '%s' already exists (%s)\n", name, e.ID)
			printOperatorHash()
			return
		}
	}

	id, err := profiles.Save(ctx, "", profile.Profile{
		Name:        name,
		APIKey:      apiKey,
		Project:     project,
		Env:         os.Getenv("DISCOVER_ENV"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
	})
	if err != nil {
		log.Fatalf("Failed to save profile: %v", err)
	}
	fmt.Printf("Created and activated profile '%s' (%s)\n", name, id)

	printOperatorHash()
}

// printOperatorHash prints a bcrypt hash for OPERATOR_PASSWORD, ready for
// OPERATOR_PASSWORD_HASH.
func printOperatorHash() {
	password := os.Getenv("OPERATOR_PASSWORD")
	if password == "" {
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	fmt.Printf("OPERATOR_PASSWORD_HASH=%s\n", hash)
}
