package generate

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/quotemuse/internal/domain/search"
)

// buildPrompt assembles the grounded generation prompt: an instruction, the
// topic, the requested quote count, and the retrieved quotes as bullets.
func buildPrompt(topic string, n int, examples []search.Match) string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"You are a quote writer. Using the style and spirit of the example quotes below, "+
			"write %d new original quotes about %q.\n", n, topic)
	b.WriteString("Respond with the quotes only, one per line, without numbering or attribution.\n\n")
	b.WriteString("Example quotes:\n")
	for _, m := range examples {
		fmt.Fprintf(&b, "- %s\n", m.Text())
	}

	return b.String()
}

// cleanOutput normalizes the completion text: strips wrapping quote marks and
// surrounding whitespace.
func cleanOutput(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, `"`, ""))
}
