// Package suggest turns backend follow-up prompts into one-click queries.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// Submitter sends text through the same path as typed input.
type Submitter interface {
	Submit(ctx context.Context, text string) error
}

// SubmitFunc adapts a function to Submitter.
type SubmitFunc func(ctx context.Context, text string) error

// Submit calls f.
func (f SubmitFunc) Submit(ctx context.Context, text string) error { return f(ctx, text) }

// Handler applies suggestions.
type Handler struct {
	submit Submitter
}

// NewHandler creates a Handler that feeds chosen suggestions to s.
func NewHandler(s Submitter) (*Handler, error) {
	if s == nil {
		return nil, fmt.Errorf("suggest: submitter is required")
	}
	return &Handler{submit: s}, nil
}

// Apply strips decoration from text and submits it. Repeats are allowed.
// Text that is empty once stripped is ignored.
func (h *Handler) Apply(ctx context.Context, text string) error {
	clean := Strip(text)
	if clean == "" {
		return nil
	}
	return h.submit.Submit(ctx, clean)
}

// Choose returns the chips to show for a message: its own suggestions when
// it has any, otherwise the running set.
func Choose(perMessage, running []string) []string {
	if len(perMessage) > 0 {
		return perMessage
	}
	return running
}

// Strip removes decorative symbols (emoji, pictographs, ZWJ sequences,
// flags, dingbats) and collapses the remaining whitespace. Currency signs
// and ordinary punctuation are kept.
func Strip(text string) string {
	var b strings.Builder
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		cluster := g.Str()
		if decorative(cluster) {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(cluster)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// decorative reports whether a grapheme cluster is a symbol rather than
// text.
func decorative(cluster string) bool {
	for _, r := range cluster {
		switch {
		case r == '\u200d' || (r >= '\ufe00' && r <= '\ufe0f'):
			// joiners and variation selectors only appear inside emoji here
			return true
		case r >= 0x1f000 && r <= 0x1faff:
			return true
		case r >= 0x2600 && r <= 0x27bf:
			return true
		case unicode.Is(unicode.So, r):
			return true
		}
	}
	return false
}
