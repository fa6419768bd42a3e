package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/versatiles-go/versatiles/versatiles"
)

func TestSourceNameStripsDirAndExtension(t *testing.T) {
	assert.Equal(t, "tiles", sourceName("/data/maps/tiles.versatiles"))
	assert.Equal(t, "tiles", sourceName("tiles.tar"))
	assert.Equal(t, "tiles", sourceName("tiles"))
}

func TestParseFormatKnownAndUnknown(t *testing.T) {
	f, err := parseFormat("png")
	assert.Nil(t, err)
	assert.Equal(t, versatiles.FormatPNG, f)

	_, err = parseFormat("bogus")
	assert.NotNil(t, err)
}

func TestParseCompressionKnownAndUnknown(t *testing.T) {
	c, err := parseCompression("brotli")
	assert.Nil(t, err)
	assert.Equal(t, versatiles.CompressionBrotli, c)

	_, err = parseCompression("bogus")
	assert.NotNil(t, err)
}
