package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rpggio/vestline/internal/config"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/sqlite"
	"github.com/spf13/cobra"
)

func newAPIKeyCmd() *cobra.Command {
	apiKeyCmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}

	var (
		identity    string
		description string
		token       string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register an API key that authenticates as an identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if token == "" {
				token = uuid.NewString()
			}
			if err := sqlite.NewAPIKeyRepository(db).Add(cmd.Context(), token, role.Address(identity), description); err != nil {
				return fmt.Errorf("adding api key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	addCmd.Flags().StringVar(&identity, "identity", "", "Address the key authenticates as")
	addCmd.Flags().StringVar(&description, "description", "", "Free-form note stored with the key")
	addCmd.Flags().StringVar(&token, "token", "", "Token to register (generated when empty)")
	_ = addCmd.MarkFlagRequired("identity")

	apiKeyCmd.AddCommand(addCmd)
	return apiKeyCmd
}
