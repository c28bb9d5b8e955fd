package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/emotion-market/point-ledger/internal/platform/auth"
	"github.com/emotion-market/point-ledger/internal/point_engine/components"
	"github.com/emotion-market/point-ledger/internal/point_engine/service"
)

type auditCounter interface {
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type environment struct {
	clock     clockwork.Clock
	services  components.Services
	audit     auditCounter // nil when the projection is unavailable
	authority *auth.Authority
	close     func()
}

var (
	bootstrap = connect
	env       *environment
)

// offline marks commands that never touch storage.
const offline = "offline"

func init() {
	rootCmd.PersistentFlags().String("config", "pointctl", "Config file name, looked up as configs/<name>.env")

	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(refundCmd)
	rootCmd.AddCommand(adjustCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(tokenCmd)

	rejectCmd.Flags().String("reason", "", "Reason recorded on the submission (required)")
	rejectCmd.Flags().String("reviewer", "operator", "Reviewer recorded on the submission")

	adjustCmd.Flags().Int64("delta", 0, "Signed number of points to post (required)")
	adjustCmd.Flags().String("reason", "", "Reason recorded on the ledger entry (required)")

	tokenCmd.Flags().Bool("admin", false, "Issue an administrator token")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}

var rootCmd = &cobra.Command{
	Use:   "pointctl",
	Short: "Operate the emotion points ledger",
	Long: `pointctl runs administrative actions against the points ledger database.
Every action goes through the same services as the API, so balances, ledger
entries and outbox messages stay consistent.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configName, _ := cmd.Flags().GetString("config")
		_, skipStorage := cmd.Annotations[offline]

		e, err := bootstrap(cmd.Context(), configName, !skipStorage)
		if err != nil {
			return err
		}
		env = e
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if env != nil {
			env.close()
		}
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject SUBMISSION_ID",
	Short: "Reject an approved submission and claw back its reward",
	Args:  cobra.ExactArgs(1),
	RunE:  runReject,
}

func runReject(cmd *cobra.Command, args []string) error {
	id, err := parseID("submission", args[0])
	if err != nil {
		return err
	}
	reason, _ := cmd.Flags().GetString("reason")
	reviewer, _ := cmd.Flags().GetString("reviewer")
	if reason == "" {
		return errors.New("--reason is required")
	}

	result, err := env.services.Submissions.Reject(cmd.Context(), &service.ReviewRequest{
		SubmissionID:  id,
		Reviewer:      reviewer,
		Reason:        reason,
		CorrelationID: correlationID(),
	})
	if err != nil {
		return err
	}

	out := map[string]any{
		"submission": result.Submission,
		"balance":    result.Balance,
	}
	if result.Clawback != nil {
		out["clawback"] = result.Clawback
	}
	return printJSON(cmd.OutOrStdout(), out)
}

var refundCmd = &cobra.Command{
	Use:   "refund PURCHASE_ID",
	Short: "Refund an active purchase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("purchase", args[0])
		if err != nil {
			return err
		}
		result, err := env.services.Purchases.Refund(cmd.Context(), &service.RefundRequest{
			PurchaseID:    id,
			CorrelationID: correlationID(),
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"purchase": result.Purchase,
			"balance":  result.Balance,
		})
	},
}

var adjustCmd = &cobra.Command{
	Use:   "adjust ACCOUNT_ID",
	Short: "Post a manual balance correction",
	Long: `Post a signed ADMIN_ADJUSTMENT entry. A negative delta may not take the balance
below zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdjust,
}

func runAdjust(cmd *cobra.Command, args []string) error {
	id, err := parseID("account", args[0])
	if err != nil {
		return err
	}
	delta, _ := cmd.Flags().GetInt64("delta")
	reason, _ := cmd.Flags().GetString("reason")
	if delta == 0 {
		return errors.New("--delta must be non-zero")
	}
	if reason == "" {
		return errors.New("--reason is required")
	}

	entry, acc, err := env.services.Accounts.Adjust(cmd.Context(), &service.AdjustRequest{
		AccountID:     id,
		Delta:         delta,
		Reason:        reason,
		CorrelationID: correlationID(),
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"entry":   entry,
		"balance": acc.Balance,
	})
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire every purchase whose access window has passed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := env.clock.Now()
		expired, err := env.services.Purchases.SweepExpired(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"expired": expired,
			"took":    env.clock.Since(started).String(),
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify ACCOUNT_ID",
	Short: "Check an account's balance against its ledger and audit projection",
	Long: `verify recomputes the balance from the ledger and compares it with the stored
balance and the latest balance snapshot. When the audit projection is
reachable the number of projected records is reported as well; it may lag
the ledger by the outbox polling interval.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	id, err := parseID("account", args[0])
	if err != nil {
		return err
	}

	rec, err := env.services.Query.Reconcile(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := map[string]any{"reconciliation": rec}
	if env.audit != nil {
		projected, err := env.audit.CountByAccount(cmd.Context(), id)
		if err != nil {
			return err
		}
		out["audit_records"] = projected
		out["audit_lag"] = rec.EntryCount - projected
	}
	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if !rec.Consistent {
		return fmt.Errorf("account %s is inconsistent", id)
	}
	return nil
}

var tokenCmd = &cobra.Command{
	Use:         "token ACCOUNT_ID",
	Short:       "Issue a bearer token for local testing",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{offline: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("account", args[0])
		if err != nil {
			return err
		}
		admin, _ := cmd.Flags().GetBool("admin")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := env.authority.Issue(auth.Principal{AccountID: id, Admin: admin}, ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func parseID(label, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", label, raw, err)
	}
	return id, nil
}

func correlationID() string {
	return "pointctl-" + uuid.NewString()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
