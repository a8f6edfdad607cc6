package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	resyncCmd := &cobra.Command{
		Use:   "resync",
		Short: "Republish a caregiver's full snapshot to connected clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			body, err := expect(client().R().Post(fmt.Sprintf("/api/users/%s/resync", userFlag)))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, body)
			return nil
		},
	}
	rootCmd.AddCommand(resyncCmd)
}
