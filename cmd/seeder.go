package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/credential"
	credentialpg "github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/credential/postgres"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed branch operator credentials into the database",
	Long:  `Copy branch operator credentials from a JSON credential file into the branch_operators table.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		path := seedFile
		if path == "" {
			path = cfg.Credentials.File
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("failed to read %s: %v", path, err)
		}
		creds, err := credential.ParseFile(data)
		if err != nil {
			log.Fatalf("failed to parse %s: %v", path, err)
		}
		// reuse the store's checks for blank and duplicate usernames
		if _, err := credential.NewMemoryStore(path, creds); err != nil {
			log.Fatalf("invalid credential file: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := openGorm(db)
		if err != nil {
			log.Fatal(err)
		}
		repo := credentialpg.NewRepository(gdb)
		ctx := context.Background()

		if clearData {
			if err := repo.Clear(ctx); err != nil {
				log.Fatalf("failed to clear credentials: %v", err)
			}
			fmt.Println("Cleared existing branch operators")
		}

		for _, c := range creds {
			if _, err := c.Identity(); err != nil {
				fmt.Printf("warning: %s has no upstream secret or location and will be refused at login\n", c.Username)
			}
		}

		if err := repo.Upsert(ctx, creds); err != nil {
			log.Fatalf("failed to seed credentials: %v", err)
		}
		fmt.Printf("Seeded %d branch operators from %s\n", len(creds), path)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "credential file to seed from (defaults to credentials.file)")
}
