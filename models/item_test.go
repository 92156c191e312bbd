package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTemplates = URLTemplates{
	Page:     "http://example.test/b{id}/",
	Download: "http://example.test/txt.php?id={id}",
}

func TestNewItemReference(t *testing.T) {
	ref, err := NewItemReference(5, testTemplates)
	require.NoError(t, err)
	assert.Equal(t, 5, ref.ID())
	assert.Equal(t, "http://example.test/b5/", ref.PageURL())
	assert.Equal(t, "http://example.test/txt.php?id=5", ref.DownloadURL())
}

func TestNewItemReferenceRejectsNonPositive(t *testing.T) {
	for _, id := range []int{0, -3} {
		_, err := NewItemReference(id, testTemplates)
		assert.Error(t, err, "id %d", id)
	}
}

func TestReferenceRange(t *testing.T) {
	refs, err := ReferenceRange(1, 3, testTemplates)
	require.NoError(t, err)
	require.Len(t, refs, 3)
	for i, ref := range refs {
		assert.Equal(t, i+1, ref.ID())
	}

	_, err = ReferenceRange(4, 2, testTemplates)
	assert.Error(t, err)
}

func TestBatchResultFailuresByKind(t *testing.T) {
	r := &BatchResult{Failed: []FailedItem{
		{ID: 1, Kind: "not_found"},
		{ID: 2, Kind: "not_found"},
		{ID: 3, Kind: "malformed_page"},
	}}
	assert.Equal(t, map[string]int{"not_found": 2, "malformed_page": 1}, r.FailuresByKind())

	var empty *BatchResult
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.FailuresByKind())
}
