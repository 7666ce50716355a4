package mergecmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/citebot/pkg/llm"
	"github.com/papercomputeco/citebot/pkg/merkle"
	"github.com/papercomputeco/citebot/pkg/storage"
	"github.com/papercomputeco/citebot/pkg/storage/bolt"
	"github.com/papercomputeco/citebot/pkg/storage/sqlite"
)

var _ = Describe("Merge Command", func() {
	var (
		ctx     context.Context
		tmpDir  string
		srcPath string
		dstPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "citebot-merge-test-*")
		Expect(err).NotTo(HaveOccurred())
		srcPath = filepath.Join(tmpDir, "source.db")
		dstPath = filepath.Join(tmpDir, "target.db")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	seed := func(d storage.Driver, key string, nodes ...*merkle.Node) {
		for _, n := range nodes {
			_, err := d.Put(ctx, n)
			Expect(err).NotTo(HaveOccurred())
		}
		if key != "" {
			Expect(d.SetHead(ctx, key, nodes[len(nodes)-1].Hash)).To(Succeed())
		}
	}

	runMerge := func(args ...string) string {
		out := &bytes.Buffer{}
		cmd := NewMergeCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())
		return out.String()
	}

	system := merkle.NewTurnNode(llm.RoleSystem, "Be concise.", nil)
	hi := merkle.NewTurnNode(llm.RoleUser, "Hi", system)
	hello := merkle.NewTurnNode(llm.RoleAssistant, "Hello!", hi)

	It("merges nodes and heads from source into target", func() {
		src, err := sqlite.NewDriver(ctx, srcPath)
		Expect(err).NotTo(HaveOccurred())
		seed(src, "K", system, hi, hello)
		src.Close()

		dst, err := sqlite.NewDriver(ctx, dstPath)
		Expect(err).NotTo(HaveOccurred())
		seed(dst, "other", system)
		dst.Close()

		output := runMerge("--db", dstPath, srcPath)
		Expect(output).To(ContainSubstring("2 new, 1 already existed, 1 heads updated"))

		dst, err = sqlite.NewDriver(ctx, dstPath)
		Expect(err).NotTo(HaveOccurred())
		defer dst.Close()

		heads, err := dst.Heads(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(heads).To(Equal(map[string]string{
			"K":     hello.Hash,
			"other": system.Hash,
		}))
	})

	It("fast-forwards a head the source extended", func() {
		dst, err := sqlite.NewDriver(ctx, dstPath)
		Expect(err).NotTo(HaveOccurred())
		seed(dst, "K", system, hi)
		dst.Close()

		src, err := sqlite.NewDriver(ctx, srcPath)
		Expect(err).NotTo(HaveOccurred())
		seed(src, "K", system, hi, hello)
		src.Close()

		runMerge("--db", dstPath, srcPath)

		dst, err = sqlite.NewDriver(ctx, dstPath)
		Expect(err).NotTo(HaveOccurred())
		defer dst.Close()

		head, err := dst.Head(ctx, "K")
		Expect(err).NotTo(HaveOccurred())
		Expect(head).To(Equal(hello.Hash))
	})

	It("keeps the target head when conversations diverged", func() {
		other := merkle.NewTurnNode(llm.RoleUser, "Bye", system)

		dst, err := sqlite.NewDriver(ctx, dstPath)
		Expect(err).NotTo(HaveOccurred())
		seed(dst, "K", system, other)
		dst.Close()

		src, err := sqlite.NewDriver(ctx, srcPath)
		Expect(err).NotTo(HaveOccurred())
		seed(src, "K", system, hi)
		src.Close()

		output := runMerge("--db", dstPath, srcPath)
		Expect(output).To(ContainSubstring("diverged: K"))

		dst, err = sqlite.NewDriver(ctx, dstPath)
		Expect(err).NotTo(HaveOccurred())
		defer dst.Close()

		head, err := dst.Head(ctx, "K")
		Expect(err).NotTo(HaveOccurred())
		Expect(head).To(Equal(other.Hash))
	})

	It("merges bolt databases", func() {
		srcPath = filepath.Join(tmpDir, "source.bolt")
		dstPath = filepath.Join(tmpDir, "target.bolt")

		src, err := bolt.NewDriver(srcPath)
		Expect(err).NotTo(HaveOccurred())
		seed(src, "K", system, hi)
		src.Close()

		output := runMerge("--backend", "bolt", "--db", dstPath, srcPath)
		Expect(output).To(ContainSubstring("Merged 2 new nodes from 1 sources"))

		dst, err := bolt.NewDriver(dstPath)
		Expect(err).NotTo(HaveOccurred())
		defer dst.Close()

		head, err := dst.Head(ctx, "K")
		Expect(err).NotTo(HaveOccurred())
		Expect(head).To(Equal(hi.Hash))
	})

	It("rejects non-file backends", func() {
		cmd := NewMergeCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--backend", "firestore", srcPath})
		Expect(cmd.ExecuteContext(ctx)).NotTo(Succeed())
	})
})
