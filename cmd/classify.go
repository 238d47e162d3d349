// File: cmd/classify.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aonoki/unifetch/internal/portal"
)

var flagSnapshotURL string

var classifyCmd = &cobra.Command{
	Use:   "classify [snapshot.html]",
	Short: "Classify a saved portal page snapshot",
	Long: `Reads an HTML snapshot (from a file, or stdin when no file is given)
together with the URL it was captured from and prints which portal page the
engine recognizes it as. Useful when the portal changes markup and runs start
failing on unknown pages.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		html, err := readSnapshot(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		state, err := classifySnapshot(ctx, flagSnapshotURL, string(html))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), state)
		return nil
	},
}

// classifySnapshot runs the production classifier against a static snapshot
// instead of a live page.
func classifySnapshot(ctx context.Context, location, html string) (portal.PageState, error) {
	prober, err := portal.NewSnapshotProber(html)
	if err != nil {
		return portal.StateUnknown, err
	}
	return portal.NewRuleClassifier().Classify(ctx, location, prober), nil
}

func readSnapshot(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

func init() {
	classifyCmd.Flags().StringVar(&flagSnapshotURL, "url", "", "URL the snapshot was captured from")
	rootCmd.AddCommand(classifyCmd)
}
