package catalog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/tryon/internal/model"
)

func names(items []model.ClothingItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}

func TestVisibleItemsNoFilter(t *testing.T) {
	seed := Fixture()
	c := New(seed)

	got := c.VisibleItems(model.Query{Category: model.AllCategories})
	assert.Equal(t, seed, got)
}

func TestVisibleItemsByCategory(t *testing.T) {
	c := New(Fixture())

	for _, cat := range model.Categories {
		got := c.VisibleItems(model.Query{Category: cat})
		require.NotEmpty(t, got, "category %s", cat)
		for _, item := range got {
			assert.Equal(t, cat, item.Category)
		}

		// Nothing of that category is missing.
		want := 0
		for _, item := range c.Items() {
			if item.Category == cat {
				want++
			}
		}
		assert.Len(t, got, want)
	}
}

func TestVisibleItemsFreeText(t *testing.T) {
	c := New(Fixture())

	for _, text := range []string{"blue", "OXFORD", "Shirt"} {
		assert.Equal(t, []string{"Blue Oxford Shirt"}, names(c.VisibleItems(model.Query{Text: text})), "query %q", text)
	}
	assert.Empty(t, c.VisibleItems(model.Query{Text: "xyz"}))
}

func TestVisibleItemsConjunctive(t *testing.T) {
	c := New(Fixture())

	// "s" matches several names, but only one of them is a Shoes item.
	got := c.VisibleItems(model.Query{Text: "s", Category: model.CategoryShoes})
	assert.Equal(t, []string{"Running Shoes"}, names(got))

	// Matching text in a different category yields nothing.
	assert.Empty(t, c.VisibleItems(model.Query{Text: "jacket", Category: model.CategoryTops}))
}

func TestVisibleItemsDoesNotMutate(t *testing.T) {
	c := New(Fixture())

	got := c.VisibleItems(model.Query{})
	got[0].Name = "changed"
	got = append(got[:1], got[2:]...)
	_ = got

	assert.Equal(t, Fixture(), c.Items())
}

func TestSeedIsCopied(t *testing.T) {
	seed := Fixture()
	c := New(seed)
	seed[0].Name = "changed"

	assert.Equal(t, "Blue Oxford Shirt", c.Items()[0].Name)
}

func TestAddAssignsFreshID(t *testing.T) {
	c := New(Fixture())
	before := c.Items()

	item := c.Add(model.NewItem{Name: "Red Cap", Category: model.CategoryAccessories})

	assert.Equal(t, len(before)+1, c.Len())
	assert.Equal(t, "6", item.ID)
	for _, existing := range before {
		assert.NotEqual(t, existing.ID, item.ID)
	}

	// Appended at the end.
	items := c.Items()
	assert.Equal(t, item, items[len(items)-1])
}

type fixedIDs struct {
	ids []string
	i   int
}

func (f *fixedIDs) NextID() string {
	id := f.ids[f.i]
	f.i++
	return id
}

func TestAddSkipsTakenIDs(t *testing.T) {
	gen := &fixedIDs{ids: []string{"1", "3", "x"}}
	c := New(Fixture(), WithIDGenerator(gen))

	item := c.Add(model.NewItem{Name: "Scarf", Category: model.CategoryAccessories})
	assert.Equal(t, "x", item.ID)
}

func TestAddAfterNonNumericSeed(t *testing.T) {
	c := New([]model.ClothingItem{
		{ID: "abc", Name: "A", Category: model.CategoryTops},
		{ID: "1", Name: "B", Category: model.CategoryTops},
	})

	assert.Equal(t, "2", c.Add(model.NewItem{Name: "C", Category: model.CategoryTops}).ID)
}

func TestAddWithUUIDs(t *testing.T) {
	c := New(Fixture(), WithIDGenerator(UUIDs{}))

	a := c.Add(model.NewItem{Name: "A", Category: model.CategoryTops})
	b := c.Add(model.NewItem{Name: "B", Category: model.CategoryTops})
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestConcurrentAddKeepsIDsUnique(t *testing.T) {
	c := New(Fixture())

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(model.NewItem{Name: "Sock", Category: model.CategoryAccessories})
		}()
	}
	wg.Wait()

	items := c.Items()
	require.Len(t, items, len(Fixture())+n)

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
}

func TestStats(t *testing.T) {
	c := New(Fixture())
	c.Add(model.NewItem{Name: "Red Cap", Category: model.CategoryAccessories})

	s := c.Stats()
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 3, s.Favorites)
	assert.Equal(t, 2, s.ByCategory[model.CategoryAccessories])
	assert.Equal(t, 1, s.ByCategory[model.CategoryShoes])
}

func TestFixtureScenario(t *testing.T) {
	c := New(Fixture())

	assert.Equal(t, []string{"Running Shoes"}, names(c.VisibleItems(model.Query{Category: model.CategoryShoes})))
	assert.Equal(t, []string{"Winter Jacket"}, names(c.VisibleItems(model.Query{Text: "jacket"})))
}
