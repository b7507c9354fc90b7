package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/carlmjohnson/versioninfo"

	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"

	"github.com/pdok/gridbox/geomhelp"
	"github.com/pdok/gridbox/grid"
	"github.com/pdok/gridbox/gridcrs"
	"github.com/pdok/gridbox/pkg/geojson"
	"github.com/pdok/gridbox/pkg/gpkg"
	"github.com/pdok/gridbox/processing"
)

const SOURCE string = `sourceGeojson`
const TARGET string = `targetGpkg`
const TABLENAME string = `tablename`
const OVERWRITE string = `overwrite`
const EPSG string = `epsg`
const RESOLUTIONX string = `resolutionX`
const RESOLUTIONY string = `resolutionY`
const MAXPIXELS string = `maxPixels`
const PAGESIZE string = `pagesize`

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "gridbox"
	app.Usage = "A Golang Grid-Aligned Bounding Box application"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     SOURCE,
			Aliases:  []string{"s"},
			Usage:    "Source GeoJSON",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(SOURCE)},
		},
		&cli.StringFlag{
			Name:     TARGET,
			Aliases:  []string{"t"},
			Usage:    "Target GPKG. The aligned bounding box(es) will be written as a polygon layer.",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(TARGET)},
		},
		&cli.StringFlag{
			Name:     TABLENAME,
			Aliases:  []string{"n"},
			Usage:    "Name of the polygon layer in the target GPKG",
			Value:    "aligned_bbox",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(TABLENAME)},
		},
		&cli.BoolFlag{
			Name:     OVERWRITE,
			Aliases:  []string{"o"},
			Usage:    "Overwrite the target GPKG if it exists",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(OVERWRITE)},
		},
		&cli.IntFlag{
			Name:     EPSG,
			Aliases:  []string{"e"},
			Usage:    "EPSG code of the source (and target), must have a built-in grid origin. E.g.: 3035",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(EPSG)},
		},
		&cli.Float64Flag{
			Name:     RESOLUTIONX,
			Aliases:  []string{"x"},
			Usage:    "Pixel size along the x axis, in the units of the CRS",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(RESOLUTIONX)},
		},
		&cli.Float64Flag{
			Name:     RESOLUTIONY,
			Aliases:  []string{"y"},
			Usage:    "Pixel size along the y axis, in the units of the CRS",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(RESOLUTIONY)},
		},
		&cli.IntFlag{
			Name:     MAXPIXELS,
			Aliases:  []string{"m"},
			Usage:    "Max pixel count along either axis before the aligned bounding box is split into tiles",
			Value:    grid.DefaultMaxPixels,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(MAXPIXELS)},
		},
		&cli.IntFlag{
			Name:     PAGESIZE,
			Aliases:  []string{"p"},
			Usage:    "Page Size, how many records are written per transaction to the target GPKG",
			Value:    1000,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(PAGESIZE)},
		},
	}

	app.Action = func(c *cli.Context) error {
		_, err := os.Stat(c.String(SOURCE))
		if os.IsNotExist(err) {
			log.Fatalf("error opening source GeoJSON: %s", err)
		}

		collection, err := geojson.ReadCollection(c.String(SOURCE))
		if err != nil {
			return err
		}

		origin, err := gridcrs.LoadEmbeddedGridOrigin(c.Int(EPSG))
		if err != nil {
			return fmt.Errorf("%w (built-in grid origins: %v)", err, builtinGridOriginCodes())
		}

		cfg := grid.Config{
			EPSG:        c.Int(EPSG),
			ResolutionX: c.Float64(RESOLUTIONX),
			ResolutionY: c.Float64(RESOLUTIONY),
			MaxPixels:   c.Int(MAXPIXELS),
			OriginX:     origin.OriginX,
			OriginY:     origin.OriginY,
		}
		err = cfg.Validate()
		if err != nil {
			return err
		}
		err = cfg.ValidateSourceSRID(collection.SRID)
		if err != nil {
			return err
		}

		log.Println("=== start aligning ===")

		tiles, err := cfg.BuildAlignedBoundingBox(collection.Extent)
		if err != nil {
			return err
		}
		log.Printf("  created %d aligned bounding box(es)", len(tiles))

		records := make([]processing.Record, len(tiles))
		for i, tile := range tiles {
			log.Printf("  tile %s: %dx%d px %s", tile.Identifier, tile.Width, tile.Height,
				geomhelp.WktMustEncode(tile.Polygon(), 100))
			records[i] = tile
		}

		target := initGPKGTarget(c.String(TARGET), c.Bool(OVERWRITE), c.Int(PAGESIZE))
		defer target.Close()
		target.Table = gpkg.NewTable(c.String(TABLENAME), cfg.EPSG, origin.Name, origin.Definition)
		err = target.CreateTable()
		if err != nil {
			log.Fatalf("error initializing the target GeoPackage: %s", err)
		}

		processing.WriteRecords(records, target)

		log.Println("=== done aligning ===")
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func initGPKGTarget(targetPath string, overwrite bool, pagesize int) *gpkg.TargetGeopackage {
	if overwrite {
		err := os.Remove(targetPath)
		var pathError *os.PathError
		if err != nil {
			if !(errors.As(err, &pathError) && errors.Is(pathError.Err, syscall.ENOENT)) {
				log.Fatalf("could not remove target file: %e", err)
			}
		}
	}
	target := gpkg.TargetGeopackage{}
	target.Init(targetPath, pagesize)
	return &target
}

func builtinGridOriginCodes() string {
	origins, err := gridcrs.ListEmbeddedGridOrigins()
	if err != nil {
		return "?"
	}
	codes := make([]string, len(origins))
	for i, origin := range origins {
		codes[i] = strconv.Itoa(origin.EPSG)
	}
	return strings.Join(codes, ", ")
}
