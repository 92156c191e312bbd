package models

import (
	"fmt"
	"strconv"
	"strings"
)

// IDPlaceholder is substituted with the item ID in URL templates.
const IDPlaceholder = "{id}"

// URLTemplates produces the two per-item URLs by substitution.
type URLTemplates struct {
	Page     string
	Download string
}

// ItemReference identifies a catalog item. Its URLs are fixed at construction.
type ItemReference struct {
	id          int
	pageURL     string
	downloadURL string
}

// NewItemReference builds a reference for a positive id.
func NewItemReference(id int, tpl URLTemplates) (ItemReference, error) {
	if id <= 0 {
		return ItemReference{}, fmt.Errorf("item id must be positive, got %d", id)
	}
	return ItemReference{
		id:          id,
		pageURL:     expand(tpl.Page, id),
		downloadURL: expand(tpl.Download, id),
	}, nil
}

// ReferenceRange builds references for start..end inclusive.
func ReferenceRange(start, end int, tpl URLTemplates) ([]ItemReference, error) {
	if end < start {
		return nil, fmt.Errorf("end id %d is before start id %d", end, start)
	}
	refs := make([]ItemReference, 0, end-start+1)
	for id := start; id <= end; id++ {
		ref, err := NewItemReference(id, tpl)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ID returns the numeric catalog id.
func (r ItemReference) ID() int { return r.id }

// PageURL returns the metadata page URL.
func (r ItemReference) PageURL() string { return r.pageURL }

// DownloadURL returns the direct text download URL.
func (r ItemReference) DownloadURL() string { return r.downloadURL }

func expand(tpl string, id int) string {
	return strings.ReplaceAll(tpl, IDPlaceholder, strconv.Itoa(id))
}
