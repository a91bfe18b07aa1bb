package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageResponse(t *testing.T) {
	p := NewPageResponse[string](nil, 1, 20, 0)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 0, p.TotalPages)

	q := NewPageResponse([]int{1, 2}, 3, 2, 5)
	assert.Equal(t, 3, q.TotalPages)
	assert.Equal(t, 5, q.Total)

	q = NewPageResponse([]int{}, 1, 0, 5)
	assert.Equal(t, 0, q.TotalPages)
}
