// Package gridcrs holds the built-in pixel grid origins per projected CRS.
// The origin anchors the CRS-wide alignment grid that the grid package
// snaps extents to.
package gridcrs

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"
	"github.com/umpc/go-sortedmap"
)

var (
	//go:embed gridorigins/*.json
	embeddedGridOriginsJSONFS embed.FS
	embeddedGridOriginsCache  = make(map[int]*GridOrigin)
)

var ErrUnknownEPSG = errors.New("no grid origin registered")

// GridOrigin anchors the alignment grid of one projected CRS.
// The origin coordinates are a pixel center; the grid package shifts them
// by half a pixel onto a pixel edge before aligning.
type GridOrigin struct {
	// EPSG code of the projected CRS this grid belongs to
	EPSG int `validate:"required,gt=0" json:"epsg"`
	// Name of the CRS, normally used for display to a human
	Name    string  `validate:"required" json:"name"`
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
	// Definition is the CRS definition for gpkg_spatial_ref_sys,
	// "undefined" when none is bundled
	Definition string `default:"undefined" json:"definition,omitempty"`
}

func (o *GridOrigin) UnmarshalJSON(data []byte) error {
	err := defaults.Set(o)
	if err != nil {
		return err
	}

	_, err = marshmallow.Unmarshal(data, o, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(o)
}

// LoadEmbeddedGridOrigin returns the built-in grid origin for the given
// EPSG code. A code without a registered origin is a configuration error.
func LoadEmbeddedGridOrigin(epsg int) (GridOrigin, error) {
	cached, ok := embeddedGridOriginsCache[epsg]
	if ok {
		return *cached, nil
	}
	var origin GridOrigin
	data, err := embeddedGridOriginsJSONFS.ReadFile(fmt.Sprintf("gridorigins/%d.json", epsg))
	if err != nil {
		return origin, fmt.Errorf("%w for EPSG:%d", ErrUnknownEPSG, epsg)
	}
	err = json.Unmarshal(data, &origin)
	if err != nil {
		return origin, err
	}
	if origin.EPSG != epsg {
		return origin, fmt.Errorf(`grid origin file for EPSG:%d holds EPSG:%d`, epsg, origin.EPSG)
	}
	embeddedGridOriginsCache[epsg] = &origin
	return origin, nil
}

// ListEmbeddedGridOrigins returns all built-in grid origins in ascending
// EPSG order.
func ListEmbeddedGridOrigins() ([]GridOrigin, error) {
	entries, err := embeddedGridOriginsJSONFS.ReadDir("gridorigins")
	if err != nil {
		return nil, err
	}
	byEPSG := sortedmap.New(len(entries), func(x, y interface{}) bool {
		return x.(GridOrigin).EPSG < y.(GridOrigin).EPSG
	})
	for _, entry := range entries {
		data, err := embeddedGridOriginsJSONFS.ReadFile("gridorigins/" + entry.Name())
		if err != nil {
			return nil, err
		}
		var origin GridOrigin
		err = json.Unmarshal(data, &origin)
		if err != nil {
			return nil, fmt.Errorf(`could not load grid origin file %v: %w`, entry.Name(), err)
		}
		byEPSG.Insert(origin.EPSG, origin)
	}
	origins := make([]GridOrigin, 0, len(entries))
	values := byEPSG.Map()
	for _, key := range byEPSG.Keys() {
		origins = append(origins, values[key].(GridOrigin))
	}
	return origins, nil
}
