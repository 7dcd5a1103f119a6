package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"moneta/internal/domain/exchange"
	"moneta/internal/infrastructure/crypto"
	"moneta/internal/infrastructure/postgres"
	"moneta/internal/shared/config"
)

const usage = `Moneta Admin CLI - Management commands for the Moneta API

Usage:
  admin <command> [options]

Commands:
  secret-set     Store a provider credential
  secret-check   Report whether a credential is configured
  secret-clear   Remove a provider credential
  rate           Print the current USD->EUR conversion rate

Examples:
  # Store the Trading 212 API key (value read from stdin when omitted)
  admin secret-set --name=trading212_apiKey --value=abc123
  admin secret-set --name=trading212_apiKey

  # Check and remove credentials
  admin secret-check --name=pluggyai_clientId
  admin secret-clear --name=simplefin_accessKey

  # Inspect the cached conversion rate (fetches when stale)
  admin rate
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "secret-set":
		runSecretSet(os.Args[2:])
	case "secret-check":
		runSecretCheck(os.Args[2:])
	case "secret-clear":
		runSecretClear(os.Args[2:])
	case "rate":
		runRate(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

// openRepositories loads config and wires the encrypted secret store
// and the rate cache against the database.
func openRepositories() (*postgres.DB, *postgres.SecretRepository, *postgres.CacheRepository) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	return db, postgres.NewSecretRepository(db, encryptor), postgres.NewCacheRepository(db)
}

func runSecretSet(args []string) {
	fs := flag.NewFlagSet("secret-set", flag.ExitOnError)
	name := fs.String("name", "", "Secret name (e.g. trading212_apiKey)")
	value := fs.String("value", "", "Secret value (read from stdin when omitted)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *name == "" {
		fmt.Println("Error: must specify --name")
		fs.Usage()
		os.Exit(1)
	}

	secretValue := *value
	if secretValue == "" {
		fmt.Print("Value: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			log.Fatalf("Failed to read value: %v", err)
		}
		secretValue = strings.TrimSpace(line)
	}
	if secretValue == "" {
		log.Fatal("Empty value; use secret-clear to remove a credential")
	}

	db, secrets, _ := openRepositories()
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := secrets.Set(ctx, *name, secretValue); err != nil {
		log.Fatalf("Failed to store secret: %v", err)
	}
	fmt.Printf("Stored %s\n", *name)
}

func runSecretCheck(args []string) {
	fs := flag.NewFlagSet("secret-check", flag.ExitOnError)
	name := fs.String("name", "", "Secret name")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *name == "" {
		fmt.Println("Error: must specify --name")
		fs.Usage()
		os.Exit(1)
	}

	db, secrets, _ := openRepositories()
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	value, err := secrets.Get(ctx, *name)
	if err != nil {
		log.Fatalf("Failed to read secret: %v", err)
	}
	if value == "" {
		fmt.Printf("%s: not configured\n", *name)
		os.Exit(1)
	}
	fmt.Printf("%s: configured\n", *name)
}

func runSecretClear(args []string) {
	fs := flag.NewFlagSet("secret-clear", flag.ExitOnError)
	name := fs.String("name", "", "Secret name")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *name == "" {
		fmt.Println("Error: must specify --name")
		fs.Usage()
		os.Exit(1)
	}

	db, secrets, _ := openRepositories()
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := secrets.Clear(ctx, *name); err != nil {
		log.Fatalf("Failed to clear secret: %v", err)
	}
	fmt.Printf("Cleared %s\n", *name)
}

func runRate(args []string) {
	fs := flag.NewFlagSet("rate", flag.ExitOnError)
	timeoutStr := fs.String("timeout", "30s", "Timeout for the fetch")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, secrets, cacheRepo := openRepositories()
	defer db.Close()

	converter := exchange.NewConverter(cacheRepo, secrets, cfg.Exchange.BaseURL, cfg.Exchange.CacheTTL)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rate, err := converter.UsdToEurRate(ctx)
	if err != nil {
		log.Fatalf("Failed to resolve rate: %v", err)
	}
	fmt.Printf("USD->EUR: %s\n", rate)
}
