// File: internal/portal/prober.go
package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SnapshotProber answers element-existence probes against a static HTML
// snapshot instead of a live page. It backs the classify subcommand's
// offline classification of saved pages, and classifier tests.
type SnapshotProber struct {
	doc *goquery.Document
}

// NewSnapshotProber parses the given HTML once; probes are then pure lookups.
func NewSnapshotProber(html string) (*SnapshotProber, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &SnapshotProber{doc: doc}, nil
}

func (p *SnapshotProber) HasElement(_ context.Context, selector string) (bool, error) {
	return p.doc.Find(selector).Length() > 0, nil
}
