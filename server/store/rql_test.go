package store_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"rincewind/server/errors"
	"rincewind/server/store"
)

var _ = Describe("RQL filters", func() {
	Describe("Parsing", func() {
		It("Parses an empty filter into an unrestricted query", func() {
			query, err := store.ParseRqlFilter("")
			Expect(err).NotTo(HaveOccurred())
			Expect(query.Conditions).To(BeEmpty())
			Expect(query.SortBy).To(BeEmpty())
		})

		It("Parses a single comparison", func() {
			query, err := store.ParseRqlFilter("eq(title,Mort)")
			Expect(err).NotTo(HaveOccurred())
			Expect(query.Conditions).To(HaveLen(1))
			Expect(query.Conditions[0].Op).To(Equal("EQ"))
			Expect(query.Conditions[0].Attribute).To(Equal("title"))
			Expect(query.Conditions[0].Values).To(Equal([]string{"Mort"}))
		})

		It("Flattens conjunctions into the condition list", func() {
			query, err := store.ParseRqlFilter("and(gt(id,1),le(id,3))")
			Expect(err).NotTo(HaveOccurred())
			Expect(query.Conditions).To(HaveLen(2))
			Expect(query.Conditions[0].Op).To(Equal("GT"))
			Expect(query.Conditions[1].Op).To(Equal("LE"))
		})

		It("Groups disjunctions into a nested condition", func() {
			query, err := store.ParseRqlFilter("or(eq(title,Mort),eq(title,Eric))")
			Expect(err).NotTo(HaveOccurred())
			Expect(query.Conditions).To(HaveLen(1))
			Expect(query.Conditions[0].Op).To(Equal("OR"))
			Expect(query.Conditions[0].Nested).To(HaveLen(2))
			Expect(query.Conditions[0].Nested[0].Op).To(Equal("EQ"))
		})

		It("Collects every membership value", func() {
			query, err := store.ParseRqlFilter("in(id,1,2,3)")
			Expect(err).NotTo(HaveOccurred())
			Expect(query.Conditions).To(HaveLen(1))
			Expect(query.Conditions[0].Op).To(Equal("IN"))
			Expect(query.Conditions[0].Values).To(Equal([]string{"1", "2", "3"}))
		})

		It("Unescapes URL-encoded values", func() {
			query, err := store.ParseRqlFilter("eq(title,The%20Colour)")
			Expect(err).NotTo(HaveOccurred())
			Expect(query.Conditions[0].Values).To(Equal([]string{"The Colour"}))
		})

		It("Extracts sorting and windowing", func() {
			query, err := store.ParseRqlFilter("eq(author,Adams),sort(-id),limit(10,2)")
			Expect(err).NotTo(HaveOccurred())
			Expect(query.Conditions).To(HaveLen(1))
			Expect(query.SortBy).To(HaveLen(1))
			Expect(query.SortBy[0].By).To(Equal("id"))
			Expect(query.SortBy[0].Desc).To(BeTrue())
			Expect(query.Limit).To(Equal("10"))
			Expect(query.Offset).To(Equal("2"))
		})

		It("Rejects a malformed expression", func() {
			_, err := store.ParseRqlFilter("eq(title")
			Expect(err).To(HaveOccurred())
			Expect(err.(*errors.ServerError).Code).To(Equal(store.ErrRQLWrong))
		})

		It("Rejects unknown operators", func() {
			_, err := store.ParseRqlFilter("xor(a,b)")
			Expect(err).To(HaveOccurred())
			Expect(err.(*errors.ServerError).Code).To(Equal(store.ErrRQLUnknownOperator))
		})
	})

	Describe("In-memory application", func() {
		havingRows := func() []map[string]interface{} {
			return []map[string]interface{}{
				{"id": float64(1), "title": "Mort", "year": float64(1987)},
				{"id": float64(2), "title": "Eric", "year": float64(1990)},
				{"id": float64(3), "title": "Sourcery", "year": float64(1988)},
			}
		}

		It("Matches rows against conjunctive conditions", func() {
			query := &store.Query{Conditions: []store.Condition{
				{Op: "GT", Attribute: "year", Values: []string{"1987"}},
				{Op: "NE", Attribute: "title", Values: []string{"Eric"}},
			}}
			Expect(query.Apply(havingRows())).To(Equal([]map[string]interface{}{
				{"id": float64(3), "title": "Sourcery", "year": float64(1988)},
			}))
		})

		It("Matches any branch of a disjunction", func() {
			query := &store.Query{Conditions: []store.Condition{
				{Op: "OR", Nested: []store.Condition{
					{Op: "EQ", Attribute: "title", Values: []string{"Mort"}},
					{Op: "EQ", Attribute: "title", Values: []string{"Eric"}},
				}},
			}}
			Expect(query.Apply(havingRows())).To(HaveLen(2))
		})

		It("Matches membership conditions", func() {
			query := &store.Query{Conditions: []store.Condition{
				{Op: "IN", Attribute: "id", Values: []string{"1", "3"}},
			}}
			Expect(query.Apply(havingRows())).To(HaveLen(2))
		})

		It("Matches substring patterns", func() {
			query := &store.Query{Conditions: []store.Condition{
				{Op: "LIKE", Attribute: "title", Values: []string{"*c*"}},
			}}
			matched := query.Apply(havingRows())
			Expect(matched).To(HaveLen(2))
			Expect(matched[0]["title"]).To(Equal("Eric"))
			Expect(matched[1]["title"]).To(Equal("Sourcery"))
		})

		It("Compares numbers numerically, not lexically", func() {
			rows := []map[string]interface{}{
				{"id": float64(9)},
				{"id": float64(10)},
			}
			query := &store.Query{Conditions: []store.Condition{
				{Op: "GT", Attribute: "id", Values: []string{"9"}},
			}}
			matched := query.Apply(rows)
			Expect(matched).To(HaveLen(1))
			Expect(matched[0]["id"]).To(Equal(float64(10)))
		})

		It("Sorts ascending and descending", func() {
			query := &store.Query{SortBy: []store.SortKey{{By: "year", Desc: false}}}
			matched := query.Apply(havingRows())
			Expect(matched[0]["title"]).To(Equal("Mort"))
			Expect(matched[2]["title"]).To(Equal("Eric"))

			query = &store.Query{SortBy: []store.SortKey{{By: "year", Desc: true}}}
			matched = query.Apply(havingRows())
			Expect(matched[0]["title"]).To(Equal("Eric"))
		})

		It("Windows the matched rows by offset and limit", func() {
			query := &store.Query{SortBy: []store.SortKey{{By: "id"}}, Offset: "1", Limit: "1"}
			matched := query.Apply(havingRows())
			Expect(matched).To(HaveLen(1))
			Expect(matched[0]["title"]).To(Equal("Eric"))
		})
	})
})
