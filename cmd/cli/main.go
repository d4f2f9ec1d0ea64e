package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskearn/paycore/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paycore-cli",
		Short: "PayCore CLI tool",
		Long:  `A command line interface for operating the PayCore settlement API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the PayCore API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(withdrawalCmd())
	rootCmd.AddCommand(commissionCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func withdrawalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawal",
		Short: "Withdrawal review operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending withdrawal and reserve the balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/withdrawals/"+args[0]+"/approve", nil)
		},
	})

	var reason string
	reject := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending withdrawal",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/withdrawals/"+args[0]+"/reject", map[string]any{"reason": reason})
		},
	}
	reject.Flags().StringVar(&reason, "reason", "", "Reason shown to the account holder")
	cmd.AddCommand(reject)

	cmd.AddCommand(&cobra.Command{
		Use:   "process <id>",
		Short: "Send an approved withdrawal to the payout gateway",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			post("/api/v1/withdrawals/"+args[0]+"/process", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a withdrawal request",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/withdrawals/" + args[0])
		},
	})

	return cmd
}

func commissionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commission",
		Short: "Referral commission operations",
	}

	var referrerID string
	settle := &cobra.Command{
		Use:   "settle [id]",
		Short: "Settle one commission by id, or all pending ones",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 1 {
				post("/api/v1/commissions/"+args[0]+"/settle", nil)
				return
			}

			path := "/api/v1/commissions/settle"
			if referrerID != "" {
				path += "?referrer_id=" + referrerID
			}
			post(path, nil)
		},
	}
	settle.Flags().StringVar(&referrerID, "referrer", "", "Limit settlement to one referrer's commissions")
	cmd.AddCommand(settle)

	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Platform settings operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all settings",
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/settings/")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Show one setting",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/settings/" + args[0])
		},
	})

	var (
		valueType string
		reason    string
		updatedBy string
	)
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update one setting with an audit trail entry",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			put("/api/v1/settings/"+args[0], map[string]any{
				"type":       valueType,
				"value":      args[1],
				"reason":     reason,
				"updated_by": updatedBy,
			})
		},
	}
	set.Flags().StringVar(&valueType, "type", "decimal", "Value type: decimal, int, bool or text")
	set.Flags().StringVar(&reason, "reason", "", "Why the value changed")
	set.Flags().StringVar(&updatedBy, "by", "cli", "Who changed the value")
	cmd.AddCommand(set)

	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Payment status operations",
	}

	var wait bool
	intent := &cobra.Command{
		Use:   "intent <correlation-id>",
		Short: "Poll a payment intent by its gateway correlation id",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := "/api/v1/status/" + args[0]
			if wait {
				path += "?wait=1"
			}
			get(path)
		},
	}
	intent.Flags().BoolVar(&wait, "wait", false, "Block until the intent finalizes or polling gives up")
	cmd.AddCommand(intent)

	cmd.AddCommand(&cobra.Command{
		Use:   "withdrawal <id>",
		Short: "Poll a withdrawal request",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/api/v1/withdrawals/" + args[0] + "/status")
		},
	})

	return cmd
}

func migrateCmd() *cobra.Command {
	var (
		databaseURL    string
		migrationsPath string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration operations",
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "migrations", "Path to the migrations directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			if err := postgres.RunMigrations(databaseURL, migrationsPath); err != nil {
				fmt.Printf("Migration failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Migrations applied")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Run: func(cmd *cobra.Command, args []string) {
			if err := postgres.RunMigrationsDown(databaseURL, migrationsPath); err != nil {
				fmt.Printf("Rollback failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Migration rolled back")
		},
	})

	return cmd
}

func get(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func post(path string, body map[string]any) {
	send(http.MethodPost, path, body)
}

func put(path string, body map[string]any) {
	send(http.MethodPut, path, body)
}

func send(method, path string, body map[string]any) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			fmt.Printf("Failed to encode request: %v\n", err)
			os.Exit(1)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, payload)
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func printResponse(resp *http.Response) {
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}

	fmt.Println(pretty.String())
}
