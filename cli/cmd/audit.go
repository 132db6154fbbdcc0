package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/usedetail/securedrop-detail/audit"
)

var (
	auditAction   string
	auditIdentity string
	auditLimit    int
	auditFailures bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
	Long:  `Query recorded key lifecycle and encryption events. Requires a file audit backend.`,
	RunE:  runAuditQuery,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditAction, "action", "", "filter by action, e.g. key.generate")
	auditCmd.Flags().StringVar(&auditIdentity, "identity", "", "filter by source identity")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum events to show")
	auditCmd.Flags().BoolVar(&auditFailures, "failures", false, "show only failed operations")
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	options := audit.QueryOptions{
		Action:   auditAction,
		Identity: auditIdentity,
		Limit:    auditLimit,
	}
	if auditFailures {
		failed := false
		options.Success = &failed
	}

	result, err := keyManager.Audit().Query(options)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tIDENTITY\tOK\tERROR")
	for _, event := range result.Events {
		okMark := "yes"
		if !event.Success {
			okMark = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			event.Timestamp.Format("2006-01-02 15:04:05"),
			event.Action, event.Identity, okMark, event.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if result.HasMore {
		fmt.Printf("(%d of %d matching events shown)\n", result.Filtered, result.TotalCount)
	}
	return nil
}
