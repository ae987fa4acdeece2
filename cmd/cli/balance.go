package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func newBalanceCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "balance <ledger-id>",
		Short: "Show a ledger balance through the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showBalance(cmd.OutOrStdout(), args[0], amount)
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "Also check whether the balance covers this amount")

	return cmd
}

func showBalance(w io.Writer, ledgerID, amount string) error {
	endpoint := baseURL + "/api/v1/ledgers/" + url.PathEscape(ledgerID) + "/balance"
	if amount != "" {
		endpoint += "?amount=" + url.QueryEscape(amount)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("balance request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		LedgerID   string `json:"ledger_id"`
		Balance    string `json:"balance"`
		Sufficient *bool  `json:"sufficient"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Fprintf(w, "Ledger:  %s\n", result.LedgerID)
	fmt.Fprintf(w, "Balance: %s\n", result.Balance)
	if result.Sufficient != nil {
		fmt.Fprintf(w, "Covers %s: %v\n", amount, *result.Sufficient)
	}
	return nil
}
