package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"Ballot/internal/api/middleware"
	"Ballot/internal/core/votes"

	"github.com/joho/godotenv"
)

// gentoken signs an HS256 bearer token for a voter with JWT_SECRET, for local
// development and smoke tests against the AppView.
//
// Usage:
//
//	go run ./cmd/gentoken -id 42 [-type users] [-ttl 24h]
func main() {
	voterType := flag.String("type", "", "voter type tag (default DEFAULT_VOTER_TYPE, then \"users\")")
	voterID := flag.String("id", "", "voter id (required)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	if *voterType == "" {
		*voterType = os.Getenv("DEFAULT_VOTER_TYPE")
	}
	if *voterType == "" {
		*voterType = "users"
	}

	token, err := middleware.IssueToken([]byte(secret), votes.NewRef(*voterType, *voterID), *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println(token)
}
