// File: cmd/assignments.go
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aonoki/unifetch/internal/portal"
	"github.com/aonoki/unifetch/internal/store"
)

var assignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "Fetch the assignment list from the portal",
	Long: `Logs into the campus portal, navigates to the LMS task list, and
prints the extracted assignments as JSON. Deadlines are normalized to
YYYY/MM/DD HH:MM:SS in the portal's timezone where parseable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, orch, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer mgr.Close()

		records, err := orch.FetchAssignments(ctx, credentials())
		if err != nil {
			return err
		}

		if err := printJSON(records); err != nil {
			return err
		}

		return withStore(ctx, func(ctx context.Context, st *store.Store) error {
			key, err := store.KeyFor(credentials().Identifier, portal.AcademicYearOf(nowInPortalTZ()))
			if err != nil {
				return err
			}
			return st.PutAssignments(ctx, key, records)
		})
	},
}

func init() {
	assignmentsCmd.Flags().StringVarP(&flagUser, "user", "u", "", "portal identifier (or UNIFETCH_PORTAL_USER)")
	assignmentsCmd.Flags().StringVarP(&flagPassword, "password", "p", "", "portal secret (or UNIFETCH_PORTAL_PASSWORD)")
	rootCmd.AddCommand(assignmentsCmd)
}
