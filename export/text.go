package export

import (
	"context"
	"strings"

	"github.com/use-agent/prerender/fingerprint"
	"github.com/use-agent/prerender/models"
)

type textProcessor struct{}

func (textProcessor) Format() models.FormatKind { return models.FormatText }

// Process saves the visible body text as extracted by the browser. The
// text fingerprint and word count in the page metadata are replaced with
// values computed from it, since layout-hidden content is excluded here.
func (textProcessor) Process(ctx context.Context, st *State) ([]byte, error) {
	text, err := st.Snapshot.Page.Text(ctx)
	if err != nil {
		return nil, err
	}
	if meta := st.Snapshot.Metadata; meta != nil && strings.TrimSpace(text) != "" {
		meta.WordCount = len(strings.Fields(text))
		meta.TextHash = fingerprint.Hex(fingerprint.Text(text))
	}
	return []byte(text), nil
}
