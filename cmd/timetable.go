// File: cmd/timetable.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aonoki/unifetch/internal/portal"
	"github.com/aonoki/unifetch/internal/scraper"
	"github.com/aonoki/unifetch/internal/store"
)

var (
	flagQuarters []int
	flagYear     int
	flagFrom     string
	flagTo       string
)

var timetableCmd = &cobra.Command{
	Use:   "timetable",
	Short: "Fetch per-quarter timetables from the portal",
	Long: `Logs into the campus portal, visits each requested quarter tab of the
LMS timetable, then reads the current month of the schedule calendar to
backfill room assignments. Results are printed as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		params, err := timetableParams()
		if err != nil {
			return err
		}

		mgr, orch, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer mgr.Close()

		records, err := orch.FetchTimetable(ctx, credentials(), params)
		if err != nil {
			return err
		}

		if err := printJSON(records); err != nil {
			return err
		}

		return withStore(ctx, func(ctx context.Context, st *store.Store) error {
			key, err := store.KeyFor(credentials().Identifier, params.AcademicYear)
			if err != nil {
				return err
			}
			return st.PutTimetable(ctx, key, records)
		})
	},
}

func timetableParams() (scraper.TimetableParams, error) {
	params := scraper.TimetableParams{
		Quarters:     flagQuarters,
		AcademicYear: flagYear,
	}
	if params.AcademicYear == 0 {
		params.AcademicYear = portal.AcademicYearOf(nowInPortalTZ())
	}
	for _, q := range params.Quarters {
		if q < 1 || q > 4 {
			return params, fmt.Errorf("quarter %d out of range 1..4", q)
		}
	}

	var err error
	if flagFrom != "" {
		params.WindowFrom, err = time.ParseInLocation("2006/01/02", flagFrom, portal.Location)
		if err != nil {
			return params, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if flagTo != "" {
		params.WindowTo, err = time.ParseInLocation("2006/01/02", flagTo, portal.Location)
		if err != nil {
			return params, fmt.Errorf("invalid --to date: %w", err)
		}
	}
	return params, nil
}

func init() {
	timetableCmd.Flags().StringVarP(&flagUser, "user", "u", "", "portal identifier (or UNIFETCH_PORTAL_USER)")
	timetableCmd.Flags().StringVarP(&flagPassword, "password", "p", "", "portal secret (or UNIFETCH_PORTAL_PASSWORD)")
	timetableCmd.Flags().IntSliceVarP(&flagQuarters, "quarters", "q", []int{1, 2, 3, 4}, "ordered quarter tabs to visit")
	timetableCmd.Flags().IntVar(&flagYear, "year", 0, "academic year (default: current)")
	timetableCmd.Flags().StringVar(&flagFrom, "from", "", "calendar window start, YYYY/MM/DD")
	timetableCmd.Flags().StringVar(&flagTo, "to", "", "calendar window end, YYYY/MM/DD")
	rootCmd.AddCommand(timetableCmd)
}
