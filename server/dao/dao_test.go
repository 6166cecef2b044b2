package dao_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"rincewind/server/dao"
	"rincewind/server/errors"
)

type fakeRecordCache struct {
	entries map[string]map[string]interface{}
	hits    int
}

func newFakeRecordCache() *fakeRecordCache {
	return &fakeRecordCache{entries: make(map[string]map[string]interface{})}
}

func (cache *fakeRecordCache) Get(resource string, key string) (map[string]interface{}, bool) {
	data, ok := cache.entries[resource+":"+key]
	if ok {
		cache.hits++
	}
	return data, ok
}

func (cache *fakeRecordCache) Set(resource string, key string, data map[string]interface{}) {
	cache.entries[resource+":"+key] = data
}

func (cache *fakeRecordCache) Invalidate(resource string, key string) {
	delete(cache.entries, resource+":"+key)
}

var _ = Describe("Dao", func() {
	var store *testStore
	var registry *dao.Registry
	var booksDao *dao.Dao

	BeforeEach(func() {
		store = newTestStore()
		registry = dao.NewRegistry()
		registry.Register("books", func() (*dao.Dao, error) {
			return dao.NewDao(havingBooksDescription(), store, registry), nil
		})
		booksDao, _ = registry.Get("books")
		store.rows["books"] = []map[string]interface{}{
			{"id": float64(1), "title": "Mort", "author_id": float64(3)},
			{"id": float64(2), "title": "Eric", "author_id": float64(3)},
			{"id": float64(3), "title": "Sourcery", "author_id": float64(4)},
		}
	})

	Describe("Attribute name translation", func() {
		It("Imports storage spellings into domain names", func() {
			name, err := booksDao.ImportAttributeName("author_id")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("authorId"))
		})

		It("Fails import of an unknown storage name", func() {
			_, err := booksDao.ImportAttributeName("publisher_id")
			Expect(err).To(HaveOccurred())
			Expect(err.(*errors.ServerError).Code).To(Equal(dao.ErrUnknownAttribute))
		})

		It("Exports domain names into escaped storage spellings", func() {
			name, err := booksDao.ExportAttributeName("authorId")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal(`"author_id"`))
		})

		It("Fails export of an unknown attribute", func() {
			_, err := booksDao.ExportAttributeName("publisher")
			Expect(err).To(HaveOccurred())
			Expect(err.(*errors.ServerError).Code).To(Equal(dao.ErrUnknownAttribute))
		})

		It("Exports the resource name and string values escaped", func() {
			Expect(booksDao.ExportResourceName()).To(Equal(`"books"`))
			Expect(booksDao.ExportString("Mort")).To(Equal(`'Mort'`))
		})
	})

	Describe("Record materialization", func() {
		It("Maps and coerces a raw row into a record", func() {
			record, err := booksDao.GetObjectFromDatabaseData(map[string]interface{}{
				"id": int64(5), "title": []byte("Pyramids"), "author_id": "3",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Data["id"]).To(Equal(float64(5)))
			Expect(record.Data["title"]).To(Equal("Pyramids"))
			Expect(record.Data["authorId"]).To(Equal(float64(3)))
		})

		It("Skips unknown columns instead of failing", func() {
			record, err := booksDao.GetObjectFromDatabaseData(map[string]interface{}{
				"id": float64(5), "legacy_column": "ignored",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Data).NotTo(HaveKey("legacy_column"))
		})

		It("Carries reference-named columns over untouched", func() {
			booksDao.RegisterReference("tags", dao.NewJoinToManyReference("books", "id", "bookId", nil))
			embedded := []interface{}{map[string]interface{}{"id": float64(10)}}
			record, err := booksDao.GetObjectFromDatabaseData(map[string]interface{}{
				"id": float64(5), "tags": embedded,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Data["tags"]).To(Equal(embedded))
		})

		It("Fails materialization on an uncoercible value", func() {
			_, err := booksDao.GetObjectFromDatabaseData(map[string]interface{}{"id": "not-a-number"})
			Expect(dao.IsCoercionError(err)).To(BeTrue())
		})
	})

	Describe("Dao creation", func() {
		It("Returns a Dao instance argument unchanged", func() {
			created, err := booksDao.CreateDao(booksDao)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeIdenticalTo(booksDao))
		})

		It("Resolves a registered name to the same memoized instance", func() {
			first, err := booksDao.CreateDao("books")
			Expect(err).NotTo(HaveOccurred())
			second, err := booksDao.CreateDao("books")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeIdenticalTo(first))
			Expect(first).To(BeIdenticalTo(booksDao))
		})

		It("Fails on an unregistered name", func() {
			_, err := booksDao.CreateDao("publishers")
			Expect(err).To(HaveOccurred())
			Expect(err.(*errors.ServerError).Code).To(Equal(dao.ErrDaoNotFound))
		})

		It("Fails on anything but a name or an instance", func() {
			_, err := booksDao.CreateDao(42)
			Expect(err).To(HaveOccurred())
			Expect(err.(*errors.ServerError).Code).To(Equal(dao.ErrDaoNotFound))
		})
	})

	Describe("Identifier coercion", func() {
		It("Coerces values through the key attribute rules", func() {
			id, err := booksDao.CoerceId("7")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(float64(7)))
		})

		It("Fails on values the key attribute cannot accept", func() {
			_, err := booksDao.CoerceId("not-an-id")
			Expect(dao.IsCoercionError(err)).To(BeTrue())
		})
	})

	Describe("Fetching", func() {
		It("Gets a single record by its stringified key", func() {
			record, err := booksDao.Get("2")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Data["title"]).To(Equal("Eric"))
		})

		It("Gets nothing for a missing key", func() {
			record, err := booksDao.Get("42")
			Expect(err).NotTo(HaveOccurred())
			Expect(record).To(BeNil())
		})

		It("Fails on a key the key attribute cannot parse", func() {
			_, err := booksDao.Get("not-a-number")
			Expect(dao.IsCoercionError(err)).To(BeTrue())
		})

		It("Filters by domain attribute names", func() {
			iterator, err := booksDao.GetAll(map[string]interface{}{"authorId": float64(3)})
			Expect(err).NotTo(HaveOccurred())
			Expect(iterator.Count()).To(Equal(2))
		})

		It("Queries in bulk through the store", func() {
			iterator, err := booksDao.GetBulk("eq(title,Mort)")
			Expect(err).NotTo(HaveOccurred())
			Expect(store.queryCalls).To(Equal(1))
			Expect(iterator.Count()).To(Equal(3))
		})
	})

	Describe("Persistence", func() {
		It("Inserts a record and refreshes it with the stored row", func() {
			record := dao.NewRecord(booksDao, map[string]interface{}{})
			Expect(record.SetValue("id", float64(4))).To(Succeed())
			Expect(record.SetValue("title", "Jingo")).To(Succeed())
			Expect(booksDao.Insert(record)).To(Succeed())
			Expect(store.rows["books"]).To(HaveLen(4))
			Expect(record.Data["title"]).To(Equal("Jingo"))
		})

		It("Translates attribute names on the way to the store", func() {
			record := dao.NewRecord(booksDao, map[string]interface{}{"id": float64(4), "authorId": float64(9)})
			Expect(booksDao.Insert(record)).To(Succeed())
			Expect(store.rows["books"][3]).To(HaveKeyWithValue("author_id", float64(9)))
		})

		It("Updates a record in place", func() {
			record, _ := booksDao.Get("1")
			record.Data["title"] = "Mort, revised"
			Expect(booksDao.Update(record)).To(Succeed())
			stored, _ := booksDao.Get("1")
			Expect(stored.Data["title"]).To(Equal("Mort, revised"))
		})

		It("Deletes a record", func() {
			record, _ := booksDao.Get("1")
			Expect(booksDao.Delete(record)).To(Succeed())
			Expect(store.rows["books"]).To(HaveLen(2))
		})

		It("Skips non-exportable references on save", func() {
			booksDao.RegisterReference("tags", dao.NewJoinToManyReference("books", "id", "bookId", nil))
			record := dao.NewRecord(booksDao, map[string]interface{}{
				"id": float64(4), "title": "Jingo", "tags": []interface{}{float64(10)},
			})
			Expect(booksDao.Insert(record)).To(Succeed())
			Expect(store.rows["books"][3]).NotTo(HaveKey("tags"))
		})

		It("Fails to save unknown attributes", func() {
			record := dao.NewRecord(booksDao, map[string]interface{}{"publisher": "Gollancz"})
			err := booksDao.Insert(record)
			Expect(err).To(HaveOccurred())
			Expect(err.(*errors.ServerError).Code).To(Equal(dao.ErrUnknownAttribute))
		})
	})

	Describe("Record values", func() {
		It("Coerces values through the attribute rules on set", func() {
			record := dao.NewRecord(booksDao, map[string]interface{}{})
			Expect(record.SetValue("authorId", "3")).To(Succeed())
			Expect(record.GetValue("authorId")).To(Equal(float64(3)))
		})

		It("Coerces reference attributes through the reference rules", func() {
			booksDao.RegisterReference("tags", dao.NewJoinToManyReference("books", "id", "bookId", nil))
			record := dao.NewRecord(booksDao, map[string]interface{}{})
			Expect(record.SetValue("tags", []interface{}{"1", float64(2)})).To(Succeed())
			Expect(record.GetValue("tags")).To(Equal([]interface{}{float64(1), float64(2)}))
		})

		It("Rejects unknown attributes on set", func() {
			record := dao.NewRecord(booksDao, map[string]interface{}{})
			err := record.SetValue("publisher", "Gollancz")
			Expect(err).To(HaveOccurred())
			Expect(err.(*errors.ServerError).Code).To(Equal(dao.ErrUnknownAttribute))
		})

		It("Exposes the key attribute value as PkValue", func() {
			record := dao.NewRecord(booksDao, map[string]interface{}{"id": float64(7)})
			Expect(record.PkValue()).To(Equal(float64(7)))
		})
	})

	Describe("Record cache", func() {
		var recordCache *fakeRecordCache

		BeforeEach(func() {
			recordCache = newFakeRecordCache()
			booksDao.SetRecordCache(recordCache)
		})

		It("Serves repeated gets from the cache", func() {
			booksDao.Get("1")
			Expect(store.getCalls).To(Equal(1))
			record, err := booksDao.Get("1")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Data["title"]).To(Equal("Mort"))
			Expect(store.getCalls).To(Equal(1))
			Expect(recordCache.hits).To(Equal(1))
		})

		It("Invalidates the cached row on delete", func() {
			record, _ := booksDao.Get("1")
			Expect(booksDao.Delete(record)).To(Succeed())
			fetched, err := booksDao.Get("1")
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched).To(BeNil())
		})

		It("Invalidates the cached row on update", func() {
			record, _ := booksDao.Get("1")
			record.Data["title"] = "Mort, revised"
			Expect(booksDao.Update(record)).To(Succeed())
			fetched, _ := booksDao.Get("1")
			Expect(fetched.Data["title"]).To(Equal("Mort, revised"))
		})
	})
})
