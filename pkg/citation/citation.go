// Package citation rewrites inline citation markers in completion replies and
// builds the citation card shown next to the reply.
package citation

import (
	"regexp"
	"strconv"

	"github.com/papercomputeco/citebot/pkg/llm"
)

// markerPattern matches the "[docN]" markers the service emits, N being 1-based,
// together with at most one space in front of the marker.
var markerPattern = regexp.MustCompile(`( ?)\[doc(\d+)\]`)

// Result is the post-processed reply.
type Result struct {
	// Text is the reply with every marker either resolved to "[N]" or removed.
	Text string

	// Card is nil when the reply carried no citations.
	Card *Card

	// Unresolved lists the marker numbers that pointed outside the citations
	// array. They are dropped from Text.
	Unresolved []int
}

// Process rewrites the markers in text against citations. It never fails:
// markers referencing a missing citation are dropped and reported in Unresolved.
// The output depends only on its inputs.
func Process(text string, citations []llm.Citation) Result {
	var unresolved []int

	rewritten := markerPattern.ReplaceAllStringFunc(text, func(marker string) string {
		m := markerPattern.FindStringSubmatch(marker)
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 || n > len(citations) {
			// The space in front goes with the dropped marker.
			unresolved = append(unresolved, n)
			return ""
		}
		return m[1] + "[" + strconv.Itoa(n) + "]"
	})

	return Result{
		Text:       rewritten,
		Card:       NewCard(citations),
		Unresolved: unresolved,
	}
}
