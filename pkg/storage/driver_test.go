package storage_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/citebot/pkg/llm"
	"github.com/papercomputeco/citebot/pkg/merkle"
	"github.com/papercomputeco/citebot/pkg/storage"
	"github.com/papercomputeco/citebot/pkg/storage/bolt"
	"github.com/papercomputeco/citebot/pkg/storage/inmemory"
	"github.com/papercomputeco/citebot/pkg/storage/sqlite"
)

type driverFactory struct {
	name string
	open func() storage.Driver
}

var factories = []driverFactory{
	{"inmemory", func() storage.Driver {
		return inmemory.NewDriver()
	}},
	{"sqlite", func() storage.Driver {
		d, err := sqlite.NewDriver(context.Background(), ":memory:")
		Expect(err).NotTo(HaveOccurred())
		return d
	}},
	{"bolt", func() storage.Driver {
		d, err := bolt.NewDriver(filepath.Join(GinkgoT().TempDir(), "citebot.bolt"))
		Expect(err).NotTo(HaveOccurred())
		return d
	}},
}

var _ = Describe("Driver", func() {
	for _, factory := range factories {
		Context(factory.name, func() {
			var (
				driver storage.Driver
				ctx    context.Context
			)

			BeforeEach(func() {
				ctx = context.Background()
				driver = factory.open()
			})

			AfterEach(func() {
				Expect(driver.Close()).To(Succeed())
			})

			Describe("Put and Get", func() {
				It("stores and retrieves a node", func() {
					node := merkle.NewTurnNode(llm.RoleUser, "test content", nil)

					isNew, err := driver.Put(ctx, node)
					Expect(err).NotTo(HaveOccurred())
					Expect(isNew).To(BeTrue())

					retrieved, err := driver.Get(ctx, node.Hash)
					Expect(err).NotTo(HaveOccurred())
					Expect(retrieved.Hash).To(Equal(node.Hash))
					Expect(retrieved.Bucket).To(Equal(node.Bucket))
					Expect(retrieved.ParentHash).To(BeNil())
					Expect(retrieved.Verify()).To(BeTrue())
				})

				It("is idempotent for duplicate puts", func() {
					node := merkle.NewTurnNode(llm.RoleUser, "test", nil)

					_, err := driver.Put(ctx, node)
					Expect(err).NotTo(HaveOccurred())

					isNew, err := driver.Put(ctx, node)
					Expect(err).NotTo(HaveOccurred())
					Expect(isNew).To(BeFalse())

					nodes, err := driver.List(ctx)
					Expect(err).NotTo(HaveOccurred())
					Expect(nodes).To(HaveLen(1))
				})

				It("returns ErrNotFound for non-existent hash", func() {
					_, err := driver.Get(ctx, "nonexistent")

					var notFoundErr storage.ErrNotFound
					Expect(err).To(BeAssignableToTypeOf(notFoundErr))
				})

				It("rejects nil nodes", func() {
					_, err := driver.Put(ctx, nil)
					Expect(err).To(MatchError(ContainSubstring("nil node")))
				})
			})

			Describe("Ancestry", func() {
				It("returns path from node to root", func() {
					root := merkle.NewTurnNode(llm.RoleSystem, "root", nil)
					child := merkle.NewTurnNode(llm.RoleUser, "child", root)
					grandchild := merkle.NewTurnNode(llm.RoleAssistant, "grandchild", child)

					for _, n := range []*merkle.Node{root, child, grandchild} {
						_, err := driver.Put(ctx, n)
						Expect(err).NotTo(HaveOccurred())
					}

					ancestry, err := driver.Ancestry(ctx, grandchild.Hash)
					Expect(err).NotTo(HaveOccurred())
					Expect(ancestry).To(HaveLen(3))
					Expect(ancestry[0].Bucket.Content).To(Equal("grandchild"))
					Expect(ancestry[1].Bucket.Content).To(Equal("child"))
					Expect(ancestry[2].Bucket.Content).To(Equal("root"))
				})

				It("returns ErrNotFound for an unknown start", func() {
					_, err := driver.Ancestry(ctx, "nonexistent")

					var notFoundErr storage.ErrNotFound
					Expect(err).To(BeAssignableToTypeOf(notFoundErr))
				})
			})

			Describe("Heads", func() {
				It("points conversation keys at nodes", func() {
					a := merkle.NewTurnNode(llm.RoleSystem, "a", nil)
					b := merkle.NewTurnNode(llm.RoleUser, "b", a)
					_, err := driver.Put(ctx, a)
					Expect(err).NotTo(HaveOccurred())
					_, err = driver.Put(ctx, b)
					Expect(err).NotTo(HaveOccurred())

					Expect(driver.SetHead(ctx, "K", a.Hash)).To(Succeed())
					Expect(driver.SetHead(ctx, "K", b.Hash)).To(Succeed())
					Expect(driver.SetHead(ctx, "L", a.Hash)).To(Succeed())

					head, err := driver.Head(ctx, "K")
					Expect(err).NotTo(HaveOccurred())
					Expect(head).To(Equal(b.Hash))

					heads, err := driver.Heads(ctx)
					Expect(err).NotTo(HaveOccurred())
					Expect(heads).To(Equal(map[string]string{"K": b.Hash, "L": a.Hash}))
				})

				It("returns ErrNoHead for unknown keys", func() {
					_, err := driver.Head(ctx, "missing")

					var noHead storage.ErrNoHead
					Expect(err).To(BeAssignableToTypeOf(noHead))
				})

				It("refuses heads that point at missing nodes", func() {
					Expect(driver.SetHead(ctx, "K", "nonexistent")).NotTo(Succeed())
				})
			})
		})
	}
})

var _ = Describe("sqlite.NewDriver", func() {
	It("creates a database file", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "nested", "test.db")

		d, err := sqlite.NewDriver(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})
})
