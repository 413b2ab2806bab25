package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent audit events",
		Long:  "Print the most recent entries from the audit trail (logins, logouts, account changes), oldest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(limit, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of events to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runLogs(limit int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	auditStore, err := openAuditStore(logger)
	if err != nil {
		return err
	}
	defer auditStore.Close()

	events, err := auditStore.Tail(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	if len(events) == 0 {
		fmt.Println("No audit events recorded yet.")
		return nil
	}
	for _, ev := range events {
		fmt.Println(ev.String())
	}
	return nil
}
