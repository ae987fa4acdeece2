package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	postgresRepo "github.com/iho/cashdesk/internal/adapter/repository/postgres"
	"github.com/iho/cashdesk/internal/usecase"
)

// errDiscrepancy makes the command exit non-zero when books do not match.
var errDiscrepancy = errors.New("reconciliation found discrepancies")

func newReconcileCmd() *cobra.Command {
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check ledgers against their denominations and history",
	}

	reconcileCmd.AddCommand(
		&cobra.Command{
			Use:   "ledger <ledger-id>",
			Short: "Reconcile one ledger",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withReconciler(cmd, func(uc *usecase.ReconciliationUseCase) error {
					result, err := uc.ReconcileLedger(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					printResult(cmd.OutOrStdout(), result)
					if !result.IsReconciled {
						return errDiscrepancy
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "branch <branch-id>",
			Short: "Reconcile every ledger of a branch",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withReconciler(cmd, func(uc *usecase.ReconciliationUseCase) error {
					report, err := uc.GenerateReport(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					printReport(cmd.OutOrStdout(), report)
					if len(report.Discrepancies) > 0 {
						return errDiscrepancy
					}
					return nil
				})
			},
		},
	)

	return reconcileCmd
}

func withReconciler(cmd *cobra.Command, fn func(uc *usecase.ReconciliationUseCase) error) error {
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	uc, err := usecase.NewReconciliationUseCase(
		postgresRepo.NewLedgerRepository(e.pool),
		postgresRepo.NewOperationRepository(e.pool),
	)
	if err != nil {
		return err
	}
	return fn(uc)
}

func printResult(w io.Writer, r *usecase.ReconciliationResult) {
	status := "OK"
	if !r.IsReconciled {
		status = "MISMATCH"
	}
	fmt.Fprintf(w, "%-8s %s (%s) recorded=%s denominations=%s history=%s\n",
		status, r.LedgerID, r.Role, r.RecordedBalance, r.DenominationTotal, r.CalculatedBalance)
}

func printReport(w io.Writer, r *usecase.ReconciliationReport) {
	fmt.Fprintf(w, "branch %s: %d/%d ledgers reconciled, cash on hand %s\n",
		r.BranchID, r.ReconciledLedgers, r.TotalLedgers, r.BranchCash)
	for _, d := range r.Discrepancies {
		printResult(w, d)
	}
}
