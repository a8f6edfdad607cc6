package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "Caregiver account operations"}

	var email string
	upsertCmd := &cobra.Command{
		Use:   "upsert",
		Short: "Create or update a caregiver account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			body, err := expect(client().R().
				SetHeader("Content-Type", "application/json").
				SetBody(map[string]string{"email": email}).
				Put("/api/users/" + userFlag))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, body)
			return nil
		},
	}
	upsertCmd.Flags().StringVarP(&email, "email", "e", "", "Caregiver email")
	usersCmd.AddCommand(upsertCmd)

	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get caregiver by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := expect(client().R().Get("/api/users/" + args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, body)
			return nil
		},
	}
	usersCmd.AddCommand(getCmd)

	rootCmd.AddCommand(usersCmd)
}
