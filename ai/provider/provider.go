// Package provider gates access to external answer sources: web search and
// generative backends.
package provider

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/sagely/ai/internal/strutil"
)

// ErrUnavailable is what callers see for any backend failure. Details stay in
// the logs; the orchestrator only needs to know the stage yielded nothing.
var ErrUnavailable = errors.New("provider unavailable")

// maxAnswerRunes caps provider output before it is surfaced or stored. A
// runaway backend must not push paragraphs into the knowledge base.
const maxAnswerRunes = 1000

// Answer is one external answer with its provenance.
type Answer struct {
	Text       string
	Source     string
	Context    string
	Confidence float64
}

// capText truncates provider output to the storable answer length.
func capText(text string) string {
	return strutil.Truncate(text, maxAnswerRunes)
}

// Searcher looks an answer up from an external search source.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) (*Answer, error)
}

// Generator produces an answer with a generative model.
type Generator interface {
	Name() string
	Generate(ctx context.Context, query string) (*Answer, error)
}
