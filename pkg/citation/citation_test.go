package citation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/citebot/pkg/citation"
	"github.com/papercomputeco/citebot/pkg/llm"
)

var _ = Describe("Process", func() {
	docs := []llm.Citation{
		{Title: "Doc1", URL: "http://x"},
		{Title: "Doc2", URL: "http://y"},
	}

	It("rewrites markers to their 1-based index", func() {
		res := citation.Process("Go is fast [doc1] and simple [doc2].", docs)

		Expect(res.Text).To(Equal("Go is fast [1] and simple [2]."))
		Expect(res.Unresolved).To(BeEmpty())
	})

	It("leaves no doc markers behind", func() {
		res := citation.Process("A [doc1][doc2] B [doc9]", docs)

		Expect(res.Text).NotTo(ContainSubstring("[doc"))
	})

	It("drops out of range markers and reports them", func() {
		res := citation.Process("Answer [doc3].", docs)

		Expect(res.Text).To(Equal("Answer."))
		Expect(res.Unresolved).To(Equal([]int{3}))
	})

	It("drops the space in front of a dropped marker", func() {
		res := citation.Process("Word [doc9] next", nil)

		Expect(res.Text).To(Equal("Word next"))
		Expect(res.Unresolved).To(Equal([]int{9}))
	})

	It("keeps text around a dropped marker byte for byte", func() {
		text := "    code := a ? b : c\nSee [doc9] here , ok.\n\tindented [doc1] line ;"
		res := citation.Process(text, docs[:1])

		Expect(res.Text).To(Equal("    code := a ? b : c\nSee here , ok.\n\tindented [1] line ;"))
		Expect(res.Unresolved).To(Equal([]int{9}))
	})

	It("keeps a marker at the start of a line", func() {
		res := citation.Process("line\n[doc9] more", nil)

		Expect(res.Text).To(Equal("line\n more"))
	})

	It("drops the zero marker", func() {
		res := citation.Process("Answer [doc0]", docs)

		Expect(res.Text).To(Equal("Answer"))
		Expect(res.Unresolved).To(Equal([]int{0}))
	})

	It("drops every marker when there are no citations", func() {
		res := citation.Process("Answer [doc1]", nil)

		Expect(res.Text).To(Equal("Answer"))
		Expect(res.Card).To(BeNil())
	})

	It("leaves text without markers untouched", func() {
		res := citation.Process("  plain text  ", nil)

		Expect(res.Text).To(Equal("  plain text  "))
	})

	It("is deterministic", func() {
		text := "One [doc2], two [doc1], three [doc7]."
		a := citation.Process(text, docs)
		b := citation.Process(text, docs)

		Expect(a).To(Equal(b))
	})

	It("builds a card only when citations exist", func() {
		Expect(citation.Process("x", docs).Card).NotTo(BeNil())
		Expect(citation.Process("x", []llm.Citation{}).Card).To(BeNil())
	})
})

var _ = Describe("Card", func() {
	It("numbers entries from one", func() {
		card := citation.NewCard([]llm.Citation{{Title: "Doc1", URL: "http://x"}})

		Expect(card.Entries).To(Equal([]citation.Entry{{Index: 1, Title: "Doc1", URL: "http://x"}}))
	})

	It("falls back to filepath, url, then a placeholder title", func() {
		card := citation.NewCard([]llm.Citation{
			{Filepath: "guide.pdf"},
			{URL: "http://z"},
			{},
		})

		Expect(card.Entries[0].Title).To(Equal("guide.pdf"))
		Expect(card.Entries[1].Title).To(Equal("http://z"))
		Expect(card.Entries[2].Title).To(Equal("Citation 3"))
	})

	It("renders markdown links", func() {
		card := citation.NewCard([]llm.Citation{{Title: "Doc1", URL: "http://x"}, {Title: "Local"}})

		md := card.Markdown()
		Expect(md).To(ContainSubstring("1. [Doc1](http://x)"))
		Expect(md).To(ContainSubstring("2. Local"))
	})

	It("renders an adaptive card with one block per entry", func() {
		card := citation.NewCard([]llm.Citation{{Title: "Doc1", URL: "http://x"}})

		payload := card.Adaptive()
		Expect(payload["type"]).To(Equal("AdaptiveCard"))
		body, ok := payload["body"].([]any)
		Expect(ok).To(BeTrue())
		Expect(body).To(HaveLen(2))
		Expect(body[1].(map[string]any)["text"]).To(ContainSubstring("Doc1"))
	})
})
