package render_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"rincewind/server/render"
)

var _ = Describe("Accept header negotiation", func() {
	It("Orders content types by explicit quality descending", func() {
		contentTypes := render.ParseAcceptHeader("text/html;q=0.8, application/xml;q=0.9, */*;q=0.1")
		Expect(contentTypes).To(Equal([]string{"application/xml", "text/html", "*/*"}))
	})

	It("Weighs entries without a quality parameter at the maximum", func() {
		contentTypes := render.ParseAcceptHeader("text/html, application/json;q=0.5")
		Expect(contentTypes).To(Equal([]string{"text/html", "application/json"}))
	})

	It("Rounds fractional qualities instead of truncating them", func() {
		contentTypes := render.ParseAcceptHeader("application/json;q=0.28, text/html;q=0.29")
		Expect(contentTypes).To(Equal([]string{"text/html", "application/json"}))
	})

	It("Breaks quality ties by declaration order", func() {
		contentTypes := render.ParseAcceptHeader("application/json, text/html, */*;q=1.0")
		Expect(contentTypes).To(Equal([]string{"application/json", "text/html", "*/*"}))
	})

	It("Tolerates surrounding whitespace and empty entries", func() {
		contentTypes := render.ParseAcceptHeader(" text/html ;q=0.5 ,, application/json ")
		Expect(contentTypes).To(Equal([]string{"application/json", "text/html"}))
	})

	It("Negotiates nothing from an empty header", func() {
		Expect(render.ParseAcceptHeader("")).To(BeEmpty())
	})
})
