package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// parseDays maps comma-separated day names onto time.Weekday ordinals.
func parseDays(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	names := map[string]time.Weekday{
		"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
		"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
		"sat": time.Saturday,
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		day, ok := names[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return nil, fmt.Errorf("unknown day %q", part)
		}
		out = append(out, int(day))
	}
	return out, nil
}

func init() {
	tasksCmd := &cobra.Command{Use: "tasks", Short: "Reminder operations"}

	var profileID, title, days string
	var hour, minute int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a recurring reminder",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" || profileID == "" || title == "" {
				return fmt.Errorf("--user, --profile and --title required")
			}
			dayNums, err := parseDays(days)
			if err != nil {
				return err
			}
			sched := map[string]interface{}{"hour": hour, "minute": minute}
			if len(dayNums) > 0 {
				sched["days"] = dayNums
			}
			body, err := expect(client().R().
				SetHeader("Content-Type", "application/json").
				SetBody(map[string]interface{}{"title": title, "schedule": sched}).
				Post(fmt.Sprintf("/api/users/%s/profiles/%s/tasks", userFlag, profileID)))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, body)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&profileID, "profile", "p", "", "Profile ID (required)")
	createCmd.Flags().StringVarP(&title, "title", "t", "", "Reminder title (required)")
	createCmd.Flags().IntVar(&hour, "hour", 9, "Hour of day (0-23)")
	createCmd.Flags().IntVar(&minute, "minute", 0, "Minute (0-59)")
	createCmd.Flags().StringVar(&days, "days", "", "Comma-separated days (mon,wed,fri); empty means daily")
	tasksCmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			body, err := expect(client().R().Get(fmt.Sprintf("/api/users/%s/tasks", userFlag)))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, body)
			return nil
		},
	}
	tasksCmd.AddCommand(listCmd)

	var status string
	statusCmd := &cobra.Command{
		Use:   "status TASK_ID",
		Short: "Set reminder status (ACTIVE, PAUSED, ARCHIVED)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			body, err := expect(client().R().
				SetHeader("Content-Type", "application/json").
				SetBody(map[string]string{"status": status}).
				Patch(fmt.Sprintf("/api/users/%s/tasks/%s/status", userFlag, args[0])))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, body)
			return nil
		},
	}
	statusCmd.Flags().StringVarP(&status, "set", "s", "PAUSED", "New status")
	tasksCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(tasksCmd)
}
