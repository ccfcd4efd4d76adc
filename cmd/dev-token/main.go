// Command dev-token mints a bearer token for local development using the
// same configuration as the server (config.yaml and EXERCISE_* variables).
//
// Usage:
//
//	dev-token [-user <uuid>]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/config"
	"github.com/phrazzld/exercise-api/internal/service/auth"
)

func main() {
	user := flag.String("user", "", "user ID to embed in the token; random when empty")
	flag.Parse()

	if err := run(*user); err != nil {
		fmt.Fprintf(os.Stderr, "dev-token: %v\n", err)
		os.Exit(1)
	}
}

func run(rawUser string) error {
	userID := uuid.New()
	if rawUser != "" {
		var err error
		if userID, err = uuid.Parse(rawUser); err != nil {
			return fmt.Errorf("invalid -user: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return err
	}

	token, err := jwtService.GenerateToken(context.Background(), userID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "user_id=%s lifetime=%dm\n", userID, cfg.Auth.TokenLifetimeMinutes)
	fmt.Println(token)
	return nil
}
