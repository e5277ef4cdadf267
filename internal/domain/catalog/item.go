package catalog

import (
	"fmt"
	"strings"
)

// MaxIDLength is the maximum catalog item identifier length.
const MaxIDLength = 512

// Attributes holds the optional descriptive fields of an item.
type Attributes struct {
	Duration        string
	AdaptiveSupport Support
	RemoteSupport   Support
}

// Item is one assessment of the catalog snapshot (immutable value object).
type Item struct {
	id          string
	name        string
	url         string
	description string
	category    Category
	attrs       Attributes
	embedding   []float32
}

// New validates and creates an Item. A blank description is accepted here and
// rejected by the index at build time, where the whole snapshot is judged.
func New(id, name, url, description string, category Category, attrs Attributes) (Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, fmt.Errorf("item ID is required")
	}
	if len(id) > MaxIDLength {
		return Item{}, fmt.Errorf("item ID too long (max %d)", MaxIDLength)
	}
	if strings.TrimSpace(name) == "" {
		return Item{}, fmt.Errorf("item %q: name is required", id)
	}
	if !category.IsValid() {
		return Item{}, fmt.Errorf("item %q: invalid category %q", id, category)
	}

	return Item{
		id:          id,
		name:        strings.TrimSpace(name),
		url:         strings.TrimSpace(url),
		description: strings.TrimSpace(description),
		category:    category,
		attrs:       attrs,
	}, nil
}

// ID returns the stable item identifier.
func (i *Item) ID() string { return i.id }

// Name returns the display name.
func (i *Item) Name() string { return i.name }

// URL returns the catalog page URL.
func (i *Item) URL() string { return i.url }

// Description returns the item description.
func (i *Item) Description() string { return i.description }

// Category returns the coarse category.
func (i *Item) Category() Category { return i.category }

// Duration returns the free-form duration label.
func (i *Item) Duration() string { return i.attrs.Duration }

// AdaptiveSupport reports adaptive/IRT support.
func (i *Item) AdaptiveSupport() Support { return i.attrs.AdaptiveSupport }

// RemoteSupport reports remote testing support.
func (i *Item) RemoteSupport() Support { return i.attrs.RemoteSupport }

// Embedding returns the item vector (nil before the catalog is embedded).
func (i *Item) Embedding() []float32 { return i.embedding }

// WithEmbedding returns a copy carrying the given vector.
func (i *Item) WithEmbedding(v []float32) Item {
	c := *i
	c.embedding = v
	return c
}

// DocumentText is the text embedded for the item at index build time.
func (i *Item) DocumentText() string {
	parts := make([]string, 0, 4)
	parts = append(parts, "Name: "+i.name)
	parts = append(parts, "Category: "+i.category.String())
	if i.description != "" {
		parts = append(parts, "Description: "+i.description)
	}
	if i.attrs.Duration != "" {
		parts = append(parts, "Duration: "+i.attrs.Duration)
	}
	return strings.Join(parts, " | ")
}
