package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/frahmantamala/number-provisioning/internal/auth"
	authpg "github.com/frahmantamala/number-provisioning/internal/auth/postgres"
	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token [account-id]",
	Short: "Issue a development access token",
	Long:  `Issue a signed bearer token for an existing, active account. Intended for local testing.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		accountID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || accountID <= 0 {
			log.Fatalf("invalid account id %q", args[0])
		}

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

		account, err := authpg.NewRepository(gormDB).GetAccountByID(context.Background(), accountID)
		if err != nil {
			log.Fatalf("failed to load account %d: %v", accountID, err)
		}
		if !account.IsActive {
			log.Fatalf("account %d is inactive", accountID)
		}

		ttl := cfg.Security.AccessTokenDuration
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		token, err := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, ttl).GenerateAccessToken(account.ID, account.Email)
		if err != nil {
			log.Fatalf("failed to sign token: %v", err)
		}
		fmt.Println(token)
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (overrides security.access_token_duration)")

	rootCmd.AddCommand(tokenCmd)
}
