package versatiles

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/maptile/tilecover"
)

// microDegree is the FileHeader bbox field's fixed-point scale (§6).
const microDegree = 1e7

// ParseBBoxString parses a "west,south,east,north" degree string into the
// FileHeader's fixed-point micro-degree fields, the same four-corner order
// the teacher's BboxRegion builds its rectangle from.
func ParseBBoxString(bbox string) (west, south, east, north int32, err error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, newErr(ErrInvalidArgument, "bbox must be \"west,south,east,north\", got "+bbox, nil)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, 0, newErr(ErrInvalidArgument, "bbox component "+p, err)
		}
		vals[i] = v
	}
	return int32(vals[0] * microDegree), int32(vals[1] * microDegree), int32(vals[2] * microDegree), int32(vals[3] * microDegree), nil
}

// RegionBBox reduces a GeoJSON region (a Feature or FeatureCollection of
// polygons, as produced by UnmarshalRegion) to its bounding rectangle in
// FileHeader micro-degrees, so an arbitrary region can still drive the
// header's simple bbox fields. It does not restrict which tiles Convert
// writes; RegionTileBBoxPyramid does that.
func RegionBBox(data []byte) (west, south, east, north int32, err error) {
	polys, err := UnmarshalRegion(data)
	if err != nil {
		return 0, 0, 0, 0, newErr(ErrInvalidArgument, "parsing geo region", err)
	}
	if len(polys) == 0 {
		return 0, 0, 0, 0, newErr(ErrInvalidArgument, "geo region contains no polygons", nil)
	}
	b := polys[0].Bound()
	for _, p := range polys[1:] {
		b = b.Union(p.Bound())
	}
	return int32(b.Min[0] * microDegree), int32(b.Min[1] * microDegree), int32(b.Max[0] * microDegree), int32(b.Max[1] * microDegree), nil
}

// RegionTileBBoxPyramid rasterizes a GeoJSON region onto the tile grid at
// every zoom up to maxZoom, building a TileBBoxPyramid whose bbox per level
// is the bounding rectangle of the tiles maptile/tilecover says the region's
// rings touch. It's a coarser approximation than a true per-tile coverage
// set (no interior/exterior distinction, unlike the teacher's
// bitmapMultiPolygon), traded for the simpler rectangle-per-zoom model this
// format's BlockIndex is built around; a caller after exact coverage should
// intersect the converted output against the polygon separately.
func RegionTileBBoxPyramid(data []byte, maxZoom uint8) (TileBBoxPyramid, error) {
	polys, err := UnmarshalRegion(data)
	if err != nil {
		return TileBBoxPyramid{}, newErr(ErrInvalidArgument, "parsing geo region", err)
	}

	pyramid := NewTileBBoxPyramid()
	for zoom := uint8(0); zoom <= maxZoom; zoom++ {
		var xMin, yMin, xMax, yMax uint32
		touched := false
		for _, poly := range polys {
			for _, ring := range poly {
				tiles, err := tilecover.Geometry(orb.LineString(ring), maptile.Zoom(zoom))
				if err != nil {
					return TileBBoxPyramid{}, newErr(ErrInvalidArgument, "rasterizing region", err)
				}
				for t := range tiles {
					if !touched {
						xMin, yMin, xMax, yMax = t.X, t.Y, t.X, t.Y
						touched = true
						continue
					}
					xMin, xMax = min32(xMin, t.X), max32(xMax, t.X)
					yMin, yMax = min32(yMin, t.Y), max32(yMax, t.Y)
				}
			}
		}
		if touched {
			pyramid.SetLevel(zoom, NewTileBBox(zoom, xMin, yMin, xMax, yMax))
		}
	}
	return pyramid, nil
}

// UnmarshalRegion parses JSON bytes into an orb.MultiPolygon region, accepting
// either a FeatureCollection or a single Feature, mirroring the teacher's
// region.go adapter so -region files in either shape are usable here.
func UnmarshalRegion(data []byte) (orb.MultiPolygon, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		var polys orb.MultiPolygon
		for _, f := range fc.Features {
			switch v := f.Geometry.(type) {
			case orb.Polygon:
				polys = append(polys, v)
			case orb.MultiPolygon:
				polys = append(polys, v...)
			}
		}
		if len(polys) > 0 {
			return polys, nil
		}
	}

	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, err
	}
	switch v := f.Geometry.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}, nil
	case orb.MultiPolygon:
		return v, nil
	default:
		return nil, newErr(ErrInvalidArgument, "region geometry is not a polygon", nil)
	}
}
