// Command devtoken mints an access token for a user id using the server's JWT settings.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"marketsync/config"
	"marketsync/internal/auth"

	"github.com/google/uuid"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("[config] .env: %v", err)
	}
	cfg := config.Load()
	userID := flag.String("user", "", "user id (a new uuid when empty)")
	name := flag.String("name", "", "display name stored on first request")
	ttl := flag.Duration("ttl", cfg.JWT.AccessExpiry, "token lifetime")
	flag.Parse()

	if *userID == "" {
		*userID = uuid.NewString()
	}
	cfg.JWT.AccessExpiry = *ttl
	if cfg.JWT.AccessExpiry <= 0 {
		cfg.JWT.AccessExpiry = 24 * time.Hour
	}
	token, err := auth.GenerateAccessToken(&cfg.JWT, *userID, *name)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Printf("# user %s\nMARKETSYNC_TOKEN=%s\n", *userID, token)
}
