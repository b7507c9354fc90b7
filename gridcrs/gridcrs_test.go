package gridcrs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedGridOrigin(t *testing.T) {
	tests := []struct {
		epsg    int
		originX float64
		originY float64
	}{
		{epsg: 3035, originX: 4321000, originY: 3210000},
		{epsg: 3857, originX: 0, originY: 0},
		{epsg: 28992, originX: 155000, originY: 463000},
		{epsg: 2193, originX: 1600000, originY: 10000000},
		{epsg: 25831, originX: 500000, originY: 0},
		{epsg: 25832, originX: 500000, originY: 0},
		{epsg: 25833, originX: 500000, originY: 0},
		{epsg: 32631, originX: 500000, originY: 0},
		{epsg: 32632, originX: 500000, originY: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("EPSG:%d", tt.epsg), func(t *testing.T) {
			got, err := LoadEmbeddedGridOrigin(tt.epsg)
			require.NoErrorf(t, err, "LoadEmbeddedGridOrigin() error = %v", err)
			assert.Equal(t, tt.epsg, got.EPSG)
			assert.Equal(t, tt.originX, got.OriginX)
			assert.Equal(t, tt.originY, got.OriginY)
			assert.NotEmpty(t, got.Name)
			assert.Equal(t, "undefined", got.Definition)

			// second load comes from the cache
			again, err := LoadEmbeddedGridOrigin(tt.epsg)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestLoadEmbeddedGridOrigin_unknown(t *testing.T) {
	_, err := LoadEmbeddedGridOrigin(4326)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEPSG)
	assert.ErrorContains(t, err, "EPSG:4326")
}

func TestListEmbeddedGridOrigins(t *testing.T) {
	origins, err := ListEmbeddedGridOrigins()
	require.NoError(t, err)
	require.NotEmpty(t, origins)

	for i := 1; i < len(origins); i++ {
		assert.Less(t, origins[i-1].EPSG, origins[i].EPSG)
	}
	for _, origin := range origins {
		loaded, err := LoadEmbeddedGridOrigin(origin.EPSG)
		require.NoError(t, err)
		assert.Equal(t, loaded, origin)
	}
}
