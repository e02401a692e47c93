package catalog

import "github.com/erazemk/tryon/internal/model"

// Fixture returns the starter wardrobe every new closet is seeded with.
func Fixture() []model.ClothingItem {
	return []model.ClothingItem{
		{
			ID:       "1",
			Name:     "Blue Oxford Shirt",
			Category: model.CategoryTops,
			Tags:     model.NewTagSet(model.TagCasual, model.TagOffice),
			ImageURL: "/static/mock/shirt1.svg",
			Favorite: true,
		},
		{
			ID:       "2",
			Name:     "Black Jeans",
			Category: model.CategoryBottoms,
			Tags:     model.NewTagSet(model.TagCasual),
			ImageURL: "/static/mock/pants1.svg",
		},
		{
			ID:       "3",
			Name:     "Running Shoes",
			Category: model.CategoryShoes,
			Tags:     model.NewTagSet(model.TagCasual, model.TagSummer),
			ImageURL: "/static/mock/shoes1.svg",
			Favorite: true,
		},
		{
			ID:       "4",
			Name:     "Silver Necklace",
			Category: model.CategoryAccessories,
			Tags:     model.NewTagSet(model.TagParty, model.TagFormal),
			ImageURL: "/static/mock/acc1.svg",
		},
		{
			ID:       "5",
			Name:     "Winter Jacket",
			Category: model.CategoryOuterwear,
			Tags:     model.NewTagSet(model.TagWinter, model.TagCasual),
			ImageURL: "/static/mock/jacket1.svg",
			Favorite: true,
		},
	}
}
