package cmd

import (
	"context"
	"fmt"
	"log"

	authpg "github.com/frahmantamala/number-provisioning/internal/auth/postgres"
	accountdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/account"
	"github.com/spf13/cobra"
)

var seedAccounts = []accountdm.Account{
	{Email: "fadhil@mail.com", Name: "Fadhil", IsActive: true},
	{Email: "padil@mail.com", Name: "Padil", IsActive: true},
	{Email: "dormant@mail.com", Name: "Dormant", IsActive: false},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample accounts",
	Long:  `Seed the database with sample accounts for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := openGorm(db, false)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		repo := authpg.NewRepository(gormDB)
		ctx := context.Background()
		for _, a := range seedAccounts {
			account := a
			if err := repo.Create(ctx, &account); err != nil {
				log.Fatalf("failed to seed account %s: %v", account.Email, err)
			}
			fmt.Printf("Seeded account %d: %s\n", account.ID, account.Email)
		}

		fmt.Println("Accounts seeded successfully; use `token <account-id>` to get a bearer token")
	},
}
