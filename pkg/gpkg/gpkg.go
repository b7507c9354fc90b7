// Package gpkg writes the aligned bounding box records to a GeoPackage.
package gpkg

import (
	"fmt"
	"log"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"

	"github.com/pdok/gridbox/processing"
)

const geometryColumn = `geom`

// Table describes the target layer. The column layout is fixed:
// id, identifier, width, height and the geometry.
type Table struct {
	Name string
	srs  gpkg.SpatialReferenceSystem
}

// NewTable returns a Table for the given layer name and spatial reference.
// definition is the CRS definition for gpkg_spatial_ref_sys, "undefined"
// when none is known.
func NewTable(name string, srid int, srsName, definition string) Table {
	return Table{
		Name: name,
		srs: gpkg.SpatialReferenceSystem{
			Name:                   srsName,
			ID:                     srid,
			Organization:           `EPSG`,
			OrganizationCoordsysID: srid,
			Definition:             definition,
		},
	}
}

type TargetGeopackage struct {
	Table    Table
	pagesize int
	handle   *gpkg.Handle
}

func (target *TargetGeopackage) Init(file string, pagesize int) {
	target.pagesize = pagesize
	target.handle = openGeopackage(file)
}

func (target TargetGeopackage) Close() {
	target.handle.Close()
}

// CreateTable registers the spatial reference system and creates the
// target layer with its gpkg_ bookkeeping.
func (target TargetGeopackage) CreateTable() error {
	err := target.handle.UpdateSRS(target.Table.srs)
	if err != nil {
		return err
	}
	return buildTable(target.handle, target.Table)
}

// WriteRecords collects the records and writes them per page to the
// GeoPackage.
func (target TargetGeopackage) WriteRecords(records <-chan processing.Record) {
	var page []processing.Record

	for {
		record, hasMore := <-records
		if !hasMore {
			target.writeRecords(page)
			break
		}
		page = append(page, record)

		if len(page)%target.pagesize == 0 {
			target.writeRecords(page)
			page = nil
		}
	}
}

func (target TargetGeopackage) writeRecords(records []processing.Record) {
	tx, err := target.handle.Begin()
	if err != nil {
		log.Fatalf("could not start a transaction: %s", err)
	}

	stmt, err := tx.Prepare(target.Table.insertSQL())
	if err != nil {
		log.Fatalf("could not prepare a statement: %s", err)
	}

	var ext *geom.Extent

	for _, record := range records {
		sb, err := gpkg.NewBinary(int32(target.Table.srs.ID), record.Geometry())
		if err != nil {
			log.Fatalf("could not create a binary geometry: %s", err)
		}

		data := record.Columns()
		data = append(data, sb)

		_, err = stmt.Exec(data...)
		if err != nil {
			var id interface{} = "unknown"
			if len(data) > 0 {
				id = data[0]
			}
			log.Fatalf("could not execute the prepared statement for record %v: %s", id, err)
		}

		if ext == nil {
			ext, err = geom.NewExtentFromGeometry(record.Geometry())
			if err != nil {
				ext = nil
				log.Println("failed to create new extent:", err)
				continue
			}
		} else {
			ext.AddGeometry(record.Geometry())
		}
	}
	stmt.Close()
	tx.Commit()

	err = target.handle.UpdateGeometryExtent(target.Table.Name, ext)
	if err != nil {
		log.Fatalln("failed to update the layer extent:", err)
	}
}

func openGeopackage(file string) *gpkg.Handle {
	handle, err := gpkg.Open(file)
	if err != nil {
		log.Fatalf("error opening GeoPackage: %s", err)
	}
	return handle
}

// createSQL returns the CREATE statement for the fixed record layout
func (t Table) createSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%v" (`+
		`id INTEGER PRIMARY KEY, `+
		`identifier TEXT NOT NULL, `+
		`width INTEGER NOT NULL, `+
		`height INTEGER NOT NULL, `+
		geometryColumn+` POLYGON);`, t.Name)
}

// insertSQL returns the INSERT statement used for writing the records
func (t Table) insertSQL() string {
	return `INSERT INTO "` + t.Name + `"(id, identifier, width, height, ` + geometryColumn + `) VALUES(?,?,?,?,?)`
}

// buildTable creates the target table with the necessary gpkg_ information
func buildTable(h *gpkg.Handle, t Table) error {
	_, err := h.Exec(t.createSQL())
	if err != nil {
		log.Fatalf("error building table in target GeoPackage: %s", err)
	}

	err = h.AddGeometryTable(gpkg.TableDescription{
		Name:          t.Name,
		ShortName:     t.Name,
		Description:   t.Name,
		GeometryField: geometryColumn,
		GeometryType:  gpkg.Polygon,
		SRS:           int32(t.srs.ID),
		//
		Z: gpkg.Prohibited,
		M: gpkg.Prohibited,
	})
	if err != nil {
		log.Println("error adding geometry table in target GeoPackage:", err)
		return err
	}
	return nil
}
