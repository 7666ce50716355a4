package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/citebot/bot"
	"github.com/papercomputeco/citebot/cmd/citebot/setup"
	"github.com/papercomputeco/citebot/pkg/citation"
	"github.com/papercomputeco/citebot/pkg/config"
	"github.com/papercomputeco/citebot/pkg/llm"
	"github.com/papercomputeco/citebot/pkg/state"
	"github.com/papercomputeco/citebot/pkg/storage/sqlite"
)

// fakeAzure answers chat completions with the next canned reply.
type fakeAzure struct {
	mu       sync.Mutex
	replies  []string
	requests []llm.ChatRequest
}

func (f *fakeAzure) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	var req llm.ChatRequest
	_ = json.Unmarshal(body, &req)
	f.requests = append(f.requests, req)
	reply := f.replies[0]
	f.replies = f.replies[1:]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(reply))
}

func completionBody(content string, citations ...llm.Citation) string {
	res := llm.ChatResponse{
		ID:    "cmpl-1",
		Model: "gpt-4o",
		Choices: []llm.Choice{{
			Message: llm.ResponseMessage{
				Role:    llm.RoleAssistant,
				Content: content,
				Context: &llm.Context{Citations: citations},
			},
		}},
	}
	b, err := json.Marshal(res)
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}

var _ = Describe("Chat Command", func() {
	var (
		ctx     context.Context
		tmpDir  string
		dbPath  string
		cfgPath string
		fake    *fakeAzure
		out     *bytes.Buffer
		errOut  *bytes.Buffer
	)

	BeforeEach(func() {
		for _, k := range []string{
			config.EnvInstructions, config.EnvDeployment, config.EnvSearchEndpoint, config.EnvSearchIndex,
			config.EnvOpenAIEndpoint, config.EnvOpenAIKey, config.EnvOpenAIVersion,
		} {
			if v, ok := os.LookupEnv(k); ok {
				os.Unsetenv(k)
				DeferCleanup(os.Setenv, k, v)
			}
		}

		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "citebot.db")
		out = &bytes.Buffer{}
		errOut = &bytes.Buffer{}

		fake = &fakeAzure{}
		srv := httptest.NewServer(fake)
		DeferCleanup(srv.Close)

		cfgPath = filepath.Join(tmpDir, "citebot.toml")
		Expect(os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
[openai]
endpoint = %q
api_key = "test-key"

[bot]
instructions = "Be concise."
deployment = "gpt-4o"
welcome = "Welcome aboard!"
`, srv.URL)), 0o600)).To(Succeed())
	})

	execute := func(input string, args ...string) error {
		root := &cobra.Command{Use: "citebot"}
		setup.AddPersistentFlags(root)
		root.AddCommand(NewChatCmd())
		root.SetIn(strings.NewReader(input))
		root.SetOut(out)
		root.SetErr(errOut)
		root.SetArgs(append([]string{"chat", "--config", cfgPath, "--db", dbPath, "--no-color"}, args...))
		return root.ExecuteContext(ctx)
	}

	It("greets and answers each line", func() {
		fake.replies = []string{completionBody("Hello!"), completionBody("Fine.")}

		Expect(execute("Hi\n\nHow are you?\n", "--key", "K")).To(Succeed())

		output := out.String()
		Expect(output).To(ContainSubstring("Welcome aboard!"))
		Expect(output).To(ContainSubstring("Hello!"))
		Expect(output).To(ContainSubstring("Fine."))
		Expect(output).To(ContainSubstring("Conversation saved as K"))

		Expect(fake.requests).To(HaveLen(2))
		Expect(fake.requests[1].Messages).To(Equal([]llm.Message{
			{Role: llm.RoleSystem, Content: "Be concise."},
			{Role: llm.RoleUser, Content: "Hi"},
			{Role: llm.RoleAssistant, Content: "Hello!"},
			{Role: llm.RoleUser, Content: "How are you?"},
		}))
	})

	It("prints the citations card", func() {
		fake.replies = []string{completionBody("See [doc1].", llm.Citation{Title: "Refund policy", URL: "http://docs/refunds"})}

		Expect(execute("Refunds?\n", "--key", "K")).To(Succeed())

		output := out.String()
		Expect(output).To(ContainSubstring("[1]"))
		Expect(output).To(ContainSubstring("Refund policy"))
		Expect(output).To(ContainSubstring("http://docs/refunds"))
	})

	It("persists the transcript under the key", func() {
		fake.replies = []string{completionBody("Hello!")}

		Expect(execute("Hi\n", "--key", "K")).To(Succeed())

		driver, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		store := state.NewDAGStore(driver, zap.NewNop())
		defer store.Close()

		data, err := store.Get(ctx, "K", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.ToMessages()).To(HaveLen(3))
	})

	It("reports service failures and keeps going", func() {
		fake.replies = []string{`not json`, completionBody("Recovered.")}

		Expect(execute("Hi\nAgain\n", "--key", "K")).To(Succeed())

		Expect(errOut.String()).To(ContainSubstring("error:"))
		Expect(out.String()).To(ContainSubstring("Recovered."))
	})

	It("accepts piped lines longer than the default scanner buffer", func() {
		fake.replies = []string{completionBody("Got it.")}
		long := strings.Repeat("x", 200*1024)

		Expect(execute(long+"\n", "--key", "K")).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Got it."))
		Expect(fake.requests).To(HaveLen(1))
		Expect(fake.requests[0].Messages[1].Content).To(Equal(long))
	})

	It("creates a random key when none is given", func() {
		Expect(execute("")).To(Succeed())
		Expect(out.String()).To(MatchRegexp(`Conversation saved as [0-9a-f-]{36}`))
	})
})

var _ = Describe("model", func() {
	var (
		m model
		r *renderer
	)

	BeforeEach(func() {
		var err error
		r, err = newRenderer(defaultWidth, false)
		Expect(err).NotTo(HaveOccurred())
		m = newModel(&session{key: "K"}, r)
	})

	update := func(msg tea.Msg) {
		next, _ := m.Update(msg)
		m = next.(model)
	}

	It("waits for the greeting before accepting input", func() {
		Expect(m.waiting).To(BeTrue())

		update(tea.WindowSizeMsg{Width: 80, Height: 24})
		update(turnDoneMsg{sent: []bot.Outbound{{Text: "Welcome!"}}})

		Expect(m.waiting).To(BeFalse())
		Expect(m.View()).To(ContainSubstring("Welcome!"))
	})

	It("ignores enter on an empty input", func() {
		update(turnDoneMsg{})
		update(tea.KeyMsg{Type: tea.KeyEnter})
		Expect(m.waiting).To(BeFalse())
	})

	It("shows the user's message while the turn runs", func() {
		update(tea.WindowSizeMsg{Width: 80, Height: 24})
		update(turnDoneMsg{})
		m.input.SetValue("Hi")
		update(tea.KeyMsg{Type: tea.KeyEnter})

		Expect(m.waiting).To(BeTrue())
		Expect(m.input.Value()).To(BeEmpty())
		Expect(m.lines[len(m.lines)-1]).To(HaveSuffix("Hi"))
	})

	It("renders turn errors", func() {
		update(tea.WindowSizeMsg{Width: 80, Height: 24})
		update(turnDoneMsg{err: &bot.ServiceError{Err: fmt.Errorf("boom")}})
		Expect(strings.Join(m.lines, "\n")).To(ContainSubstring("boom"))
	})

	It("renders citation cards within the width", func() {
		card := citation.NewCard([]llm.Citation{{Title: strings.Repeat("long title ", 20), URL: "http://x"}})
		rendered := r.card(card)
		Expect(rendered).To(ContainSubstring("Citations"))
		Expect(rendered).To(ContainSubstring("…"))
	})
})
