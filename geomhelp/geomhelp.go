package geomhelp

import (
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
)

// WktMustEncode encodes the geometry as WKT for logging, truncated to
// maxLen runes. 0 means no truncation.
func WktMustEncode(g geom.Geometry, maxLen uint) string {
	if maxLen == 0 {
		return wkt.MustEncode(g)
	}
	return truncate.StringWithTail(wkt.MustEncode(g), maxLen, "...")
}
