package versatiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBBoxStringValid(t *testing.T) {
	west, south, east, north, err := ParseBBoxString("-10.5,20.25,30,40")
	assert.Nil(t, err)
	assert.Equal(t, int32(-10.5*microDegree), west)
	assert.Equal(t, int32(20.25*microDegree), south)
	assert.Equal(t, int32(30*microDegree), east)
	assert.Equal(t, int32(40*microDegree), north)
}

func TestParseBBoxStringWrongFieldCount(t *testing.T) {
	_, _, _, _, err := ParseBBoxString("1,2,3")
	assertErrKind(t, err, ErrInvalidArgument)
}

func TestParseBBoxStringNonNumeric(t *testing.T) {
	_, _, _, _, err := ParseBBoxString("a,2,3,4")
	assertErrKind(t, err, ErrInvalidArgument)
}

const squareFeature = `{
  "type": "Feature",
  "properties": {},
  "geometry": {
    "type": "Polygon",
    "coordinates": [[[0,0],[0,10],[10,10],[10,0],[0,0]]]
  }
}`

const squareFeatureCollection = `{
  "type": "FeatureCollection",
  "features": [` + squareFeature + `]
}`

func TestUnmarshalRegionFeature(t *testing.T) {
	polys, err := UnmarshalRegion([]byte(squareFeature))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(polys))
}

func TestUnmarshalRegionFeatureCollection(t *testing.T) {
	polys, err := UnmarshalRegion([]byte(squareFeatureCollection))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(polys))
}

func TestUnmarshalRegionNonPolygonIsAnError(t *testing.T) {
	point := `{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}`
	_, err := UnmarshalRegion([]byte(point))
	assertErrKind(t, err, ErrInvalidArgument)
}

func TestRegionBBoxMatchesSquareBounds(t *testing.T) {
	west, south, east, north, err := RegionBBox([]byte(squareFeature))
	assert.Nil(t, err)
	assert.Equal(t, int32(0), west)
	assert.Equal(t, int32(0), south)
	assert.Equal(t, int32(10*microDegree), east)
	assert.Equal(t, int32(10*microDegree), north)
}

func TestRegionTileBBoxPyramidCoversExpectedZooms(t *testing.T) {
	pyramid, err := RegionTileBBoxPyramid([]byte(squareFeature), 3)
	assert.Nil(t, err)

	for z := uint8(0); z <= 3; z++ {
		assert.False(t, pyramid.Level(z).IsEmpty(), "zoom %d should be touched", z)
	}
}
