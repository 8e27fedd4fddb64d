// Package main provides a CLI for generating gatepass secrets and operator
// tokens for local development. Tokens minted against the dev operator key
// will NOT work against a production deployment.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"gatepass/internal/operatortoken"
	id "gatepass/pkg/domain"
	"gatepass/pkg/secrets"
)

const (
	// Dev operator key - matches config.go when GATEPASS_OPERATOR_KEY is not set
	devOperatorKey = "dev-operator-key-change-in-production"

	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	secretCmd := flag.NewFlagSet("secret", flag.ExitOnError)
	scannerCmd := flag.NewFlagSet("scannerkey", flag.ExitOnError)
	operatorCmd := flag.NewFlagSet("operator", flag.ExitOnError)

	secretBytes := secretCmd.Int("bytes", 32, "Secret length in bytes before hex encoding")

	scannerID := scannerCmd.String("scanner-id", "", "Scanner ID (UUID). Generated if empty.")

	operatorName := operatorCmd.String("operator", "dev@localhost", "Operator identity embedded in the token")
	operatorKey := operatorCmd.String("key", "", "Operator signing key. Defaults to the dev key.")
	operatorTTL := operatorCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	operatorJSON := operatorCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "secret":
		secretCmd.Parse(os.Args[2:])
		generateSecret(*secretBytes)
	case "scannerkey":
		scannerCmd.Parse(os.Args[2:])
		generateScannerKey(*scannerID)
	case "operator":
		operatorCmd.Parse(os.Args[2:])
		generateOperatorToken(*operatorName, *operatorKey, *operatorTTL, *operatorJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`keygen - Generate gatepass secrets and operator tokens

WARNING: Operator tokens minted with the default key only work against a
         server running with the dev operator key.

Usage:
  keygen <command> [flags]

Commands:
  secret      Generate a random hex secret (for GATEPASS_SIGNING_SECRET
              or GATEPASS_OPERATOR_KEY)
  scannerkey  Generate a scanner key plus the bcrypt hash to provision
              a scanners row by hand
  operator    Mint an operator token for the admin endpoints

Examples:
  # Generate a signing secret
  keygen secret

  # Generate a key for an existing scanner row
  keygen scannerkey -scanner-id "550e8400-e29b-41d4-a716-446655440000"

  # Mint an operator token for the default dev key
  keygen operator -operator "ops@example.com"

  # Mint against a specific key with a longer TTL
  keygen operator -key "$GATEPASS_OPERATOR_KEY" -ttl 1h

Use "keygen <command> -h" for more information about a command.`)
}

func generateSecret(n int) {
	if n < 16 {
		fmt.Fprintln(os.Stderr, "Error: secrets shorter than 16 bytes are too guessable")
		os.Exit(1)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hex.EncodeToString(buf))
}

// generateScannerKey emits a "<scannerID>.<secret>" key and the bcrypt hash
// to store in scanners.key_hash. The registration endpoint does this online;
// this path exists for provisioning rows directly in SQL.
func generateScannerKey(scannerID string) {
	sid := id.NewScannerID()
	if scannerID != "" {
		parsed, err := id.ParseScannerID(scannerID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid scanner-id: %v\n", err)
			os.Exit(1)
		}
		sid = parsed
	}

	secret, err := secrets.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scanner ID: %s\n", sid)
	fmt.Printf("Key (X-Scanner-Key, shown once): %s.%s\n", sid, secret)
	fmt.Printf("key_hash: %s\n", hash)
}

func generateOperatorToken(operator, key string, ttl time.Duration, jsonOutput bool) {
	keyType := "custom"
	if key == "" {
		key = devOperatorKey
		keyType = "dev"
	}

	svc, err := operatortoken.NewService(key, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	token, err := svc.Generate(context.Background(), operator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		out := tokenOutput{
			Token:     token,
			Type:      "operator (" + keyType + " key)",
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header": "Authorization: Bearer " + token,
			},
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
		return
	}

	fmt.Printf("Operator token (%s key, expires in %s):\n\n%s\n\n", keyType, ttl, token)
	fmt.Printf("Usage:\n  curl -H \"Authorization: Bearer %s\" http://localhost:8080/rosters\n", token)
}
