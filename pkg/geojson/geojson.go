// Package geojson reads the two facts the core needs from a GeoJSON
// source file: the aggregate planar extent over all features and the EPSG
// code of the collection's CRS.
package geojson

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/go-spatial/geom"
	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"
	"github.com/perimeterx/marshmallow"
)

var (
	crsNameRegexURN  = regexp.MustCompile("^urn:ogc:def:crs:EPSG::(?P<code>[0-9]+)$")
	crsNameRegexCode = regexp.MustCompile("^EPSG:(?P<code>[0-9]+)$")
	crsNameRegexURL  = regexp.MustCompile("^https?://.+/def/crs/EPSG/[^/]+/(?P<code>[0-9]+)$")
)

// Collection holds what was read from a source file.
type Collection struct {
	Extent geom.Extent
	// SRID is 0 when the source has no determinable EPSG code
	SRID int
}

// ReadCollection reads the GeoJSON file and returns the union of the
// feature bounds plus the EPSG code from the (nonstandard) crs member.
// The geometries themselves are not kept.
func ReadCollection(path string) (Collection, error) {
	var collection Collection

	data, err := os.ReadFile(path)
	if err != nil {
		return collection, err
	}

	featureCollection, err := orbjson.UnmarshalFeatureCollection(data)
	if err != nil {
		return collection, fmt.Errorf(`could not parse %v as a GeoJSON FeatureCollection: %w`, path, err)
	}

	// the crs member was dropped from GeoJSON in RFC 7946, but projected
	// sources still carry it, so fish it out of the unknown fields
	var envelope struct {
		Type string `json:"type"`
	}
	specials, err := marshmallow.Unmarshal(data, &envelope, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return collection, err
	}
	collection.SRID = parseCRS(specials["crs"])

	first := true
	var bound orb.Bound
	for _, feature := range featureCollection.Features {
		if feature == nil || feature.Geometry == nil {
			continue
		}
		if first {
			bound = feature.Geometry.Bound()
			first = false
			continue
		}
		bound = bound.Union(feature.Geometry.Bound())
	}
	if first {
		return collection, fmt.Errorf(`%v contains no features with a geometry`, path)
	}
	collection.Extent = geom.Extent{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}

	return collection, nil
}

// parseCRS returns the EPSG code from a named crs member, 0 when there is
// none or it cannot be parsed.
func parseCRS(rawCrs interface{}) int {
	rawCrsMap, ok := rawCrs.(map[string]interface{})
	if !ok {
		return 0
	}
	properties, ok := rawCrsMap["properties"].(map[string]interface{})
	if !ok {
		return 0
	}
	name, ok := properties["name"].(string)
	if !ok {
		return 0
	}
	for _, re := range []*regexp.Regexp{crsNameRegexURN, crsNameRegexCode, crsNameRegexURL} {
		parts := re.FindStringSubmatch(name)
		if parts == nil {
			continue
		}
		code, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		return code
	}
	return 0
}
