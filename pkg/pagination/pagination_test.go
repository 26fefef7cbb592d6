package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	p := New(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset())
}

func TestNew_CapsPerPage(t *testing.T) {
	p := New(2, 500)
	assert.Equal(t, 100, p.PerPage)
	assert.Equal(t, 100, p.Offset())
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query   string
		page    int
		perPage int
	}{
		{"", 1, 20},
		{"?page=3&per_page=5", 3, 5},
		{"?page=-1", 1, 20},
		{"?page=abc&per_page=xyz", 1, 20},
		{"?per_page=101", 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products"+tt.query, nil)
			p := FromRequest(req)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.perPage, p.PerPage)
		})
	}
}

func TestNewResult(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 12, Params{Page: 1, PerPage: 5})
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.False(t, r.HasPrev)

	last := NewResult([]string{"k"}, 12, Params{Page: 3, PerPage: 5})
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}

func TestNewResult_NilDataBecomesEmpty(t *testing.T) {
	r := NewResult[int](nil, 0, Params{})
	assert.NotNil(t, r.Data)
	assert.Equal(t, 0, r.TotalPages)
	assert.Equal(t, 20, r.PerPage)
}
