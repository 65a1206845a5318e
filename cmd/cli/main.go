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
	"golang.org/x/crypto/bcrypt"

	"github.com/immoflow/reconcile/internal/infrastructure/postgres"
)

// Seam for tests.
var bcryptGenerate = bcrypt.GenerateFromPassword

var (
	baseURL string
	token   string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reconcile-cli",
		Short: "Reconcile CLI tool",
		Long:  `A command line interface for the bank transaction reconciliation API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the reconcile API")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("RECONCILE_TOKEN"), "Bearer token (defaults to RECONCILE_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(transactionsCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Transaction operations",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List unmatched transactions",
		Run: func(cmd *cobra.Command, args []string) {
			request(http.MethodGet, fmt.Sprintf("/api/v1/transactions/?limit=%d", limit), nil)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of transactions")

	var tenantID, transactionType string
	matchCmd := &cobra.Command{
		Use:   "match [transaction-id...]",
		Short: "Match transactions to a tenant or category",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			body := map[string]any{"transaction_ids": args}
			if tenantID != "" {
				body["tenant_id"] = tenantID
			}
			if transactionType != "" {
				body["transaction_type"] = transactionType
			}
			request(http.MethodPost, "/api/v1/transactions/match", body)
		},
	}
	matchCmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant to assign")
	matchCmd.Flags().StringVar(&transactionType, "type", "", "Transaction category to book as")

	cmd.AddCommand(listCmd, matchCmd)

	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Matching rule operations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List matching rules",
		Run: func(cmd *cobra.Command, args []string) {
			request(http.MethodGet, "/api/v1/rules/", nil)
		},
	}

	previewCmd := &cobra.Command{
		Use:   "preview <rule-id>",
		Short: "Preview which unmatched transactions a rule would match",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			request(http.MethodPost, "/api/v1/rules/"+args[0]+"/apply", map[string]any{"preview": true})
		},
	}

	applyCmd := &cobra.Command{
		Use:   "apply <rule-id>",
		Short: "Apply a rule to all matching unmatched transactions",
		Run: func(cmd *cobra.Command, args []string) {
			request(http.MethodPost, "/api/v1/rules/"+args[0]+"/apply", map[string]any{})
		},
		Args: cobra.ExactArgs(1),
	}

	cmd.AddCommand(listCmd, previewCmd, applyCmd)

	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User operations",
	}

	cmd.AddCommand(hashPasswordCmd())

	return cmd
}

// hashPasswordCmd hashes a password for seeding users directly in SQL.
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcryptGenerate([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			fmt.Println(string(hash))

			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var databaseURL, migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrations(databaseURL, migrationsPath)
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrationsDown(databaseURL, migrationsPath)
		},
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL")
	cmd.PersistentFlags().StringVar(&migrationsPath, "migrations", "migrations", "Path to migration files")
	cmd.AddCommand(upCmd, downCmd)

	return cmd
}

// request performs an authenticated API call and pretty-prints the response.
func request(method, path string, body any) {
	client := &http.Client{Timeout: timeout}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			fmt.Printf("Failed to encode request: %v\n", err)
			os.Exit(1)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		fmt.Printf("Failed to build request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	printRawJSON(raw)

	if resp.StatusCode >= 400 {
		fmt.Printf("Request failed (Status: %d)\n", resp.StatusCode)
		os.Exit(1)
	}
}

// printJSON pretty-prints a value as indented JSON.
func printJSON(v any) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode output: %v\n", err)
		return
	}

	fmt.Println(string(payload))
}

// printRawJSON indents an already-encoded JSON payload.
func printRawJSON(raw []byte) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}

	fmt.Println(pretty.String())
}
