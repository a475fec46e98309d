package format_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/pkg/format"
)

const reading = "# 今日运势\n\n**愚者** 代表 *新的开始*\n第二行\n\n1. 第一\n2. 第二\n\n- 甲\n- 乙\n\n5 < 6 & 7"

var _ = Describe("HTML", func() {
	It("renders the reading subset", func() {
		Expect(format.HTML(reading)).To(Equal(
			"<h3>今日运势</h3>" +
				"<p><strong>愚者</strong> 代表 <em>新的开始</em><br>第二行</p>" +
				"<ul><li>第一</li><li>第二</li></ul>" +
				"<ul><li>甲</li><li>乙</li></ul>" +
				"<p>5 &lt; 6 &amp; 7</p>",
		))
	})

	It("renders blank text as empty", func() {
		Expect(format.HTML("")).To(BeEmpty())
		Expect(format.HTML(" \n\n ")).To(BeEmpty())
	})

	It("steps deeper headings down", func() {
		Expect(format.HTML("## 小节")).To(Equal("<h4>小节</h4>"))
		Expect(format.HTML("###### 深")).To(Equal("<h6>深</h6>"))
	})

	It("does not treat a heading marker without text as a heading", func() {
		Expect(format.HTML("#\n正文")).To(Equal("<p>#<br>正文</p>"))
	})

	It("escapes markup in the source text", func() {
		Expect(format.HTML("<script>alert(1)</script>")).To(Equal("<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>"))
	})

	It("normalizes CRLF line endings", func() {
		Expect(format.HTML("a\r\nb")).To(Equal("<p>a<br>b</p>"))
	})

	It("is safe on partial streamed text", func() {
		Expect(format.HTML("**未闭合")).To(Equal("<p>**未闭合</p>"))
		Expect(format.HTML("1. ")).To(Equal("<p>1. </p>"))
	})
})

var _ = Describe("Passes", func() {
	It("exposes the fixed order", func() {
		names := []string{}
		for _, p := range format.Passes() {
			names = append(names, p.Name)
		}
		Expect(names).To(Equal([]string{
			"escape", "headings", "bold", "italic", "ordered-list",
			"unordered-list", "list-wrap", "paragraphs", "line-breaks",
		}))
	})

	It("runs a single pass in isolation", func() {
		bold, err := format.Lookup("bold")
		Expect(err).NotTo(HaveOccurred())
		Expect(format.Apply("**x**", bold)).To(Equal("<strong>x</strong>"))

		_, err = format.Lookup("tables")
		Expect(err).To(HaveOccurred())
	})

	It("returns a copy of the pipeline", func() {
		ps := format.Passes()
		ps[0] = format.Pass{Name: "changed"}
		Expect(format.Passes()[0].Name).To(Equal("escape"))
	})
})

var _ = Describe("PlainText", func() {
	It("strips tags and decodes entities", func() {
		text := format.PlainText(format.HTML(reading))
		Expect(text).To(HavePrefix("今日运势\n愚者 代表 新的开始\n第二行"))
		Expect(text).To(ContainSubstring("第一\n第二"))
		Expect(text).To(HaveSuffix("5 < 6 & 7"))
		Expect(text).NotTo(ContainSubstring("<p>"))
	})

	It("decodes non-breaking spaces", func() {
		Expect(format.PlainText("<p>a&nbsp;b</p>")).To(Equal("a b"))
	})
})
