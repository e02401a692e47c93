package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of clothing categories.
//
// The zero value is not a category. Queries use it as the "All" filter, and
// Valid rejects it, so it never ends up on a stored item.
type Category uint8

// Categories.
const (
	AllCategories Category = iota
	CategoryTops
	CategoryBottoms
	CategoryShoes
	CategoryAccessories
	CategoryOuterwear
)

// Categories lists every storable category in display order.
var Categories = []Category{
	CategoryTops,
	CategoryBottoms,
	CategoryShoes,
	CategoryAccessories,
	CategoryOuterwear,
}

// DefaultCategory is preselected when a new item is drafted.
const DefaultCategory = CategoryTops

func (c Category) String() string {
	switch c {
	case AllCategories:
		return "All"
	case CategoryTops:
		return "Tops"
	case CategoryBottoms:
		return "Bottoms"
	case CategoryShoes:
		return "Shoes"
	case CategoryAccessories:
		return "Accessories"
	case CategoryOuterwear:
		return "Outerwear"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}

// Valid reports whether c can be stored on an item.
func (c Category) Valid() bool {
	return c >= CategoryTops && c <= CategoryOuterwear
}

// ParseCategory parses a storable category name (case-insensitive).
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return AllCategories, fmt.Errorf("unknown category %q", s)
}

// ParseCategoryFilter parses a query category. Empty and "All" select every
// category.
func ParseCategoryFilter(s string) (Category, error) {
	if s == "" || strings.EqualFold(s, AllCategories.String()) {
		return AllCategories, nil
	}
	return ParseCategory(s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Tag is the closed set of clothing tags.
type Tag uint8

// Tags.
const (
	TagCasual Tag = iota
	TagFormal
	TagParty
	TagOffice
	TagSummer
	TagWinter

	tagCount
)

// Tags lists every tag in display order.
var Tags = []Tag{TagCasual, TagFormal, TagParty, TagOffice, TagSummer, TagWinter}

var tagNames = [tagCount]string{"Casual", "Formal", "Party", "Office", "Summer", "Winter"}

func (t Tag) String() string {
	if t < tagCount {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// ParseTag parses a tag name (case-insensitive).
func ParseTag(s string) (Tag, error) {
	for _, t := range Tags {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tag %q", s)
}

func (t Tag) MarshalText() ([]byte, error) {
	if t >= tagCount {
		return nil, fmt.Errorf("invalid tag %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Tag) UnmarshalText(text []byte) error {
	parsed, err := ParseTag(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TagSet is a set of tags. Duplicates are impossible by construction.
type TagSet uint8

// NewTagSet builds a set from the given tags.
func NewTagSet(tags ...Tag) TagSet {
	var s TagSet
	for _, t := range tags {
		s = s.With(t)
	}
	return s
}

// Has reports whether t is in the set.
func (s TagSet) Has(t Tag) bool {
	return t < tagCount && s&(1<<t) != 0
}

// With returns s with t added. Out-of-set tags are ignored.
func (s TagSet) With(t Tag) TagSet {
	if t >= tagCount {
		return s
	}
	return s | 1<<t
}

// Toggle returns s with t's membership flipped.
func (s TagSet) Toggle(t Tag) TagSet {
	if t >= tagCount {
		return s
	}
	return s ^ 1<<t
}

// Len returns the number of tags in the set.
func (s TagSet) Len() int {
	n := 0
	for _, t := range Tags {
		if s.Has(t) {
			n++
		}
	}
	return n
}

// Slice returns the tags in display order.
func (s TagSet) Slice() []Tag {
	tags := make([]Tag, 0, s.Len())
	for _, t := range Tags {
		if s.Has(t) {
			tags = append(tags, t)
		}
	}
	return tags
}

func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// PlaceholderImage is used for items created without an image.
const PlaceholderImage = "/static/placeholder.svg"

// ClothingItem is a single wardrobe entry.
type ClothingItem struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Category Category   `json:"category"`
	Tags     TagSet     `json:"tags"`
	ImageURL string     `json:"image_url"`
	Favorite bool       `json:"favorite"`
	LastWorn *time.Time `json:"last_worn,omitempty"` // reserved, never written
}

// NewItem is a clothing item that has not been assigned an ID yet.
type NewItem struct {
	Name     string
	Category Category
	Tags     TagSet
	ImageURL string
	Favorite bool
}

// Query selects the visible subset of a catalog.
type Query struct {
	Text     string
	Category Category
}

// Match reports whether item passes both filters. Name matching is a
// case-insensitive substring match.
func (q Query) Match(item ClothingItem) bool {
	if q.Category != AllCategories && item.Category != q.Category {
		return false
	}
	if q.Text != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(q.Text)) {
		return false
	}
	return true
}
