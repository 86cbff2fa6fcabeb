package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankOptionsForQuery(t *testing.T, query string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return c, w
}

func TestParseRankOptions(t *testing.T) {
	c, _ := rankOptionsForQuery(t, "page=2&per_page=50&limit=20&max_pickup_distance=150&min_safety_rating=4.0&verified_only=true")

	opts, ok := parseRankOptions(c)
	require.True(t, ok)

	assert.Equal(t, 2, opts.Page)
	assert.Equal(t, 50, opts.PerPage)
	assert.Equal(t, 20, opts.Limit)
	require.NotNil(t, opts.Filters.MaxPickupDistanceMiles)
	assert.Equal(t, 150.0, *opts.Filters.MaxPickupDistanceMiles)
	require.NotNil(t, opts.Filters.MinSafetyRating)
	assert.Equal(t, 4.0, *opts.Filters.MinSafetyRating)
	assert.True(t, opts.Filters.VerifiedOnly)
}

func TestParseRankOptionsEmptyQueryMeansDefaults(t *testing.T) {
	c, _ := rankOptionsForQuery(t, "")

	opts, ok := parseRankOptions(c)
	require.True(t, ok)

	assert.Zero(t, opts.Page)
	assert.Zero(t, opts.PerPage)
	assert.Zero(t, opts.Limit)
	assert.Nil(t, opts.Filters.MaxPickupDistanceMiles)
	assert.Nil(t, opts.Filters.MinSafetyRating)
	assert.False(t, opts.Filters.VerifiedOnly)
}

func TestParseRankOptionsRejectsBadInput(t *testing.T) {
	for _, query := range []string{
		"page=-1",
		"per_page=abc",
		"max_pickup_distance=-5",
		"min_safety_rating=high",
	} {
		c, w := rankOptionsForQuery(t, query)
		_, ok := parseRankOptions(c)
		assert.False(t, ok, "query %q should be rejected", query)
		assert.Equal(t, http.StatusBadRequest, w.Code, "query %q", query)
	}
}
