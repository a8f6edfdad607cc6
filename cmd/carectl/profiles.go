package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	profilesCmd := &cobra.Command{Use: "profiles", Short: "Care recipient operations"}

	var name, phone, relationship string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a care recipient (starts pending confirmation)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" || name == "" || phone == "" {
				return fmt.Errorf("--user, --name and --phone required")
			}
			body, err := expect(client().R().
				SetHeader("Content-Type", "application/json").
				SetBody(map[string]string{
					"name":         name,
					"phoneNumber":  phone,
					"relationship": relationship,
				}).
				Post(fmt.Sprintf("/api/users/%s/profiles", userFlag)))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, body)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Recipient name (required)")
	createCmd.Flags().StringVarP(&phone, "phone", "p", "", "Recipient phone number (required)")
	createCmd.Flags().StringVarP(&relationship, "relationship", "r", "", "Relationship to caregiver")
	profilesCmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List care recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			body, err := expect(client().R().Get(fmt.Sprintf("/api/users/%s/profiles", userFlag)))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, body)
			return nil
		},
	}
	profilesCmd.AddCommand(listCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete PROFILE_ID",
		Short: "Delete a care recipient and everything under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			_, err := expect(client().R().Delete(fmt.Sprintf("/api/users/%s/profiles/%s", userFlag, args[0])))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "deleted")
			return nil
		},
	}
	profilesCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(profilesCmd)
}
