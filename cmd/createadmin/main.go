// Command createadmin provisions an operator account for the labeling portal.
// Accounts are only ever created through this command, never over the network.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/crypto/bcrypt"

	"github.com/jo-hoe/snowlabel/internal/backend/database"
	"github.com/jo-hoe/snowlabel/internal/core"
)

func getConfigPath() string {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

func main() {
	configFlag := flag.String("config", "", "path to config.yaml (defaults to CONFIG_PATH or ./config.yaml)")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [-config path] <username> <password>\n", os.Args[0])
		os.Exit(2)
	}
	username := flag.Arg(0)
	password := flag.Arg(1)

	configPath := *configFlag
	if configPath == "" {
		configPath = getConfigPath()
	}
	config, err := core.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config from %s: %v", configPath, err)
	}

	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer func() {
		if err := databaseService.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
	}()

	if _, err := databaseService.GetAccountByUsername(username); err == nil {
		fmt.Printf("User %q already exists.\n", username)
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		log.Fatalf("failed to look up account: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	if _, err := databaseService.CreateAccount(username, hash); err != nil {
		log.Fatalf("failed to create account: %v", err)
	}

	fmt.Printf("Admin user %q created successfully.\n", username)
}
