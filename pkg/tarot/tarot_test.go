package tarot_test

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/pkg/tarot"
)

func ids(cards []tarot.DrawnCard) []int {
	out := make([]int, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

var _ = Describe("Catalogue", func() {
	It("holds the 22 major arcana", func() {
		cards := tarot.Cards(tarot.ArcanaMajor)
		Expect(cards).To(HaveLen(22))
		Expect(cards[0].Name).To(Equal("愚者"))
		Expect(cards[21].NameEn).To(Equal("The World"))
	})

	It("has no minor arcana yet", func() {
		Expect(tarot.Cards(tarot.ArcanaMinor)).To(BeEmpty())
	})

	It("looks cards up by id", func() {
		c, ok := tarot.Lookup(17)
		Expect(ok).To(BeTrue())
		Expect(c.Name).To(Equal("星星"))

		_, ok = tarot.Lookup(99)
		Expect(ok).To(BeFalse())
	})

	It("returns copies", func() {
		cards := tarot.Cards(tarot.ArcanaAll)
		cards[0].Name = "changed"
		Expect(tarot.Cards(tarot.ArcanaAll)[0].Name).To(Equal("愚者"))
	})

	It("parses arcana names", func() {
		a, err := tarot.ParseArcana("")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(tarot.ArcanaAll))

		_, err = tarot.ParseArcana("cups")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Orient", func() {
	It("uses the reversed meaning and marker when reversed", func() {
		c, _ := tarot.Lookup(16)

		up := tarot.Orient(c, true)
		Expect(up.Meaning).To(Equal(c.UprightMeaning))
		Expect(up.DisplayName).To(Equal("塔"))
		Expect(up.Orientation()).To(Equal("正位"))

		down := tarot.Orient(c, false)
		Expect(down.Meaning).To(Equal(c.ReversedMeaning))
		Expect(down.DisplayName).To(Equal("塔（逆位）"))
		Expect(down.Orientation()).To(Equal("逆位"))
	})
})

var _ = Describe("Deck", func() {
	It("draws three distinct major arcana", func() {
		for range 100 {
			drawn := tarot.Draw(3, nil, tarot.ArcanaMajor)
			Expect(drawn).To(HaveLen(3))

			seen := map[int]bool{}
			for _, c := range drawn {
				Expect(c.Arcana).To(Equal(tarot.ArcanaMajor))
				Expect(seen[c.ID]).To(BeFalse())
				seen[c.ID] = true
			}
		}
	})

	It("eventually yields both orientations", func() {
		var upright, reversed bool
		for range 200 {
			for _, c := range tarot.Draw(3, nil, tarot.ArcanaMajor) {
				if c.Upright {
					upright = true
				} else {
					reversed = true
				}
			}
			if upright && reversed {
				break
			}
		}
		Expect(upright).To(BeTrue())
		Expect(reversed).To(BeTrue())
	})

	It("never returns excluded cards", func() {
		exclude := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
		for range 50 {
			for _, id := range ids(tarot.Draw(5, exclude, tarot.ArcanaAll)) {
				Expect(exclude).NotTo(ContainElement(id))
			}
		}
	})

	It("returns fewer cards when the deck runs short", func() {
		exclude := make([]int, 0, 20)
		for i := range 20 {
			exclude = append(exclude, i)
		}
		drawn := tarot.Draw(3, exclude, tarot.ArcanaMajor)
		Expect(ids(drawn)).To(ConsistOf(20, 21))
	})

	It("returns nothing for a non-positive count", func() {
		Expect(tarot.Draw(0, nil, tarot.ArcanaAll)).To(BeEmpty())
		Expect(tarot.Draw(-1, nil, tarot.ArcanaAll)).To(BeEmpty())
	})

	It("is reproducible with a seeded source", func() {
		a := tarot.NewDeck(tarot.WithRand(rand.New(rand.NewPCG(1, 2))))
		b := tarot.NewDeck(tarot.WithRand(rand.New(rand.NewPCG(1, 2))))
		Expect(a.Draw(3, nil, tarot.ArcanaMajor)).To(Equal(b.Draw(3, nil, tarot.ArcanaMajor)))
	})
})

var _ = Describe("Interpret", func() {
	It("describes each position of the spread", func() {
		fool, _ := tarot.Lookup(0)
		sun, _ := tarot.Lookup(19)
		world, _ := tarot.Lookup(21)
		cards := []tarot.DrawnCard{
			tarot.Orient(fool, true),
			tarot.Orient(sun, false),
			tarot.Orient(world, true),
		}

		text := tarot.Interpret(cards, tarot.ThreeCard, "")
		Expect(text).To(HavePrefix("基于您的问题\"今日运势\""))
		Expect(text).To(ContainSubstring("第一张牌（愚者）：\n" + fool.UprightMeaning))
		Expect(text).To(ContainSubstring("第二张牌（太阳（逆位））：\n" + sun.ReversedMeaning))
		Expect(text).To(ContainSubstring("综合解读"))
	})
})
