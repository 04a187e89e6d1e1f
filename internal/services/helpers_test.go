package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaginationNormalise(t *testing.T) {
	p := Pagination{DefaultSize: 10, MaxSize: 50}

	page, size := p.normalise(0, 0)
	require.Equal(t, 1, page)
	require.Equal(t, 10, size)

	page, size = p.normalise(3, 500)
	require.Equal(t, 3, page)
	require.Equal(t, 50, size)

	_, size = Pagination{}.normalise(1, 0)
	require.Equal(t, DefaultPagination.DefaultSize, size)
}

func TestNewPageLastPage(t *testing.T) {
	page := newPage([]int{1, 2}, 1, 2, 5)
	require.Equal(t, 3, page.LastPage)

	empty := newPage[int](nil, 1, 15, 0)
	require.NotNil(t, empty.Items)
	require.Equal(t, 1, empty.LastPage)
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	require.Equal(t, "%50!%!_off!!%", likePattern(" 50%_OFF! "))
	require.True(t, containsFold("Office Chairs", "CHAIR"))
	require.False(t, containsFold("Tables", "chair"))
}
