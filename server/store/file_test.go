package store_test

import (
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"rincewind/server/errors"
	"rincewind/server/store"
)

var _ = Describe("File store", func() {
	var root string
	var fileStore *store.FileStore

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "filestore")
		Expect(err).NotTo(HaveOccurred())
		fileStore = store.NewFileStore(root)
	})

	AfterEach(func() {
		os.RemoveAll(root)
	})

	It("Exports names and string values as the identity", func() {
		Expect(fileStore.ExportName("author_id")).To(Equal("author_id"))
		Expect(fileStore.ExportStringValue("Mort")).To(Equal("Mort"))
	})

	It("Serves an absent resource as an empty collection", func() {
		resultSet, err := fileStore.GetAll("books", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resultSet.NumRows()).To(Equal(0))
	})

	It("Persists inserted rows across store instances", func() {
		_, err := fileStore.Insert("books", map[string]interface{}{"id": float64(1), "title": "Mort"})
		Expect(err).NotTo(HaveOccurred())
		reopened := store.NewFileStore(root)
		row, err := reopened.Get("books", "id", float64(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(row).To(HaveKeyWithValue("title", "Mort"))
	})

	It("Assigns the next free identifier when none is supplied", func() {
		fileStore.Insert("books", map[string]interface{}{"id": float64(3), "title": "Sourcery"})
		row, err := fileStore.Insert("books", map[string]interface{}{"title": "Eric"})
		Expect(err).NotTo(HaveOccurred())
		Expect(row["id"]).To(Equal(float64(4)))
		lastId, err := fileStore.LastInsertId()
		Expect(err).NotTo(HaveOccurred())
		Expect(lastId).To(Equal(float64(4)))
	})

	It("Matches keys by stringified value", func() {
		fileStore.Insert("books", map[string]interface{}{"id": float64(1), "title": "Mort"})
		row, err := fileStore.Get("books", "id", "1")
		Expect(err).NotTo(HaveOccurred())
		Expect(row).To(HaveKeyWithValue("title", "Mort"))
	})

	It("Gets nothing for a missing key", func() {
		row, err := fileStore.Get("books", "id", float64(42))
		Expect(err).NotTo(HaveOccurred())
		Expect(row).To(BeNil())
	})

	It("Filters rows by column values", func() {
		fileStore.Insert("books", map[string]interface{}{"id": float64(1), "author_id": float64(3)})
		fileStore.Insert("books", map[string]interface{}{"id": float64(2), "author_id": float64(3)})
		fileStore.Insert("books", map[string]interface{}{"id": float64(3), "author_id": float64(4)})
		resultSet, err := fileStore.GetAll("books", map[string]interface{}{"author_id": float64(3)})
		Expect(err).NotTo(HaveOccurred())
		Expect(resultSet.NumRows()).To(Equal(2))
	})

	It("Queries rows through an RQL filter", func() {
		fileStore.Insert("books", map[string]interface{}{"id": float64(1), "title": "Mort"})
		fileStore.Insert("books", map[string]interface{}{"id": float64(2), "title": "Eric"})
		resultSet, err := fileStore.Query("books", "eq(title,Eric)")
		Expect(err).NotTo(HaveOccurred())
		Expect(resultSet.NumRows()).To(Equal(1))
		row, err := resultSet.FetchRow()
		Expect(err).NotTo(HaveOccurred())
		Expect(row).To(HaveKeyWithValue("title", "Eric"))
	})

	It("Updates a stored row in place", func() {
		fileStore.Insert("books", map[string]interface{}{"id": float64(1), "title": "Mort"})
		row, err := fileStore.Update("books", "id", float64(1), map[string]interface{}{"title": "Mort, revised"})
		Expect(err).NotTo(HaveOccurred())
		Expect(row).To(HaveKeyWithValue("title", "Mort, revised"))
		stored, _ := fileStore.Get("books", "id", float64(1))
		Expect(stored).To(HaveKeyWithValue("title", "Mort, revised"))
	})

	It("Fails to update a missing row", func() {
		_, err := fileStore.Update("books", "id", float64(42), map[string]interface{}{"title": "Ghost"})
		Expect(err).To(HaveOccurred())
		Expect(err.(*errors.ServerError).Status).To(Equal(404))
	})

	It("Deletes a stored row", func() {
		fileStore.Insert("books", map[string]interface{}{"id": float64(1), "title": "Mort"})
		Expect(fileStore.Delete("books", "id", float64(1))).To(Succeed())
		row, err := fileStore.Get("books", "id", float64(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(row).To(BeNil())
	})

	It("Fails to delete a missing row", func() {
		fileStore.Insert("books", map[string]interface{}{"id": float64(1)})
		err := fileStore.Delete("books", "id", float64(42))
		Expect(err).To(HaveOccurred())
		Expect(err.(*errors.ServerError).Status).To(Equal(404))
	})
})
