package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/versatiles-go/versatiles/versatiles"
)

func main() {
	logger := log.New(os.Stdout, "", log.Ldate|log.Ltime)

	if len(os.Args) < 2 {
		fmt.Println(`Usage: versatiles [COMMAND] [ARGS]

versatiles compare A B
versatiles convert INPUT OUTPUT
versatiles probe INPUT
versatiles serve INPUT...`)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "compare":
		err = runCompare(logger, os.Args[2:])
	case "convert":
		err = runConvert(logger, os.Args[2:])
	case "probe":
		err = runProbe(logger, os.Args[2:])
	case "serve":
		err = runServe(logger, os.Args[2:])
	default:
		fmt.Printf("unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		logger.Println(err)
		os.Exit(1)
	}
}

func runConvert(logger *log.Logger, args []string) error {
	cmd := flag.NewFlagSet("convert", flag.ExitOnError)
	dstFormat := cmd.String("format", "", "destination tile format (png/jpg/webp/pbf/...), default: source format")
	dstCompression := cmd.String("compression", "", "destination compression (none/gzip/brotli), default: source compression")
	force := cmd.Bool("force", false, "force a full decode/re-encode even when src and dst already match")
	bbox := cmd.String("bbox", "", "restrict the header's geo bbox to \"west,south,east,north\" degrees")
	region := cmd.String("region", "", "restrict the header's geo bbox to the bounds of a GeoJSON file")
	cmd.Parse(args)
	if cmd.NArg() < 2 {
		return fmt.Errorf("usage: versatiles convert [flags] INPUT OUTPUT")
	}
	input, output := cmd.Arg(0), cmd.Arg(1)

	src, err := versatiles.GetReader(input)
	if err != nil {
		return err
	}
	writer, err := versatiles.GetWriter(output)
	if err != nil {
		return err
	}

	opts := []versatiles.ConfigOption{versatiles.WithForceRecompress(*force)}
	if *dstFormat != "" {
		f, err := parseFormat(*dstFormat)
		if err != nil {
			return err
		}
		opts = append(opts, versatiles.WithTileFormat(f))
	}
	if *dstCompression != "" {
		c, err := parseCompression(*dstCompression)
		if err != nil {
			return err
		}
		opts = append(opts, versatiles.WithCompression(c))
	}
	switch {
	case *bbox != "":
		west, south, east, north, err := versatiles.ParseBBoxString(*bbox)
		if err != nil {
			return err
		}
		opts = append(opts, versatiles.WithGeoBBox(west, south, east, north))
	case *region != "":
		data, err := os.ReadFile(*region)
		if err != nil {
			return err
		}
		west, south, east, north, err := versatiles.RegionBBox(data)
		if err != nil {
			return err
		}
		opts = append(opts, versatiles.WithGeoBBox(west, south, east, north))

		srcParams := src.GetParameters()
		maxZoom, _ := srcParams.BBoxPyramid.MaxNonEmptyZoom()
		regionPyramid, err := versatiles.RegionTileBBoxPyramid(data, maxZoom)
		if err != nil {
			return err
		}
		opts = append(opts, versatiles.WithBBoxPyramid(regionPyramid))
	}

	cfg := versatiles.NewTileConverterConfig(opts...)
	if _, err := versatiles.Convert(src, cfg, writer, logger); err != nil {
		return err
	}
	logger.Printf("wrote %s", output)
	return nil
}

func runProbe(logger *log.Logger, args []string) error {
	cmd := flag.NewFlagSet("probe", flag.ExitOnError)
	cmd.Parse(args)
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: versatiles probe INPUT")
	}
	r, err := versatiles.GetReader(cmd.Arg(0))
	if err != nil {
		return err
	}
	params := r.GetParameters()
	fmt.Printf("tile_format:  %s\n", params.TileFormat)
	fmt.Printf("compression:  %d\n", params.Compression)
	for _, lvl := range params.BBoxPyramid.IterLevels() {
		fmt.Printf("zoom %2d: %dx%d tiles (x:%d..%d y:%d..%d)\n",
			lvl.Zoom, lvl.BBox.Width(), lvl.BBox.Height(),
			lvl.BBox.XMin, lvl.BBox.XMax, lvl.BBox.YMin, lvl.BBox.YMax)
	}
	return nil
}

func runCompare(logger *log.Logger, args []string) error {
	cmd := flag.NewFlagSet("compare", flag.ExitOnError)
	cmd.Parse(args)
	if cmd.NArg() < 2 {
		return fmt.Errorf("usage: versatiles compare A B")
	}
	a, err := versatiles.GetReader(cmd.Arg(0))
	if err != nil {
		return err
	}
	b, err := versatiles.GetReader(cmd.Arg(1))
	if err != nil {
		return err
	}
	diffs, err := versatiles.Compare(a, b)
	if err != nil {
		return err
	}
	for _, d := range diffs {
		fmt.Println(d)
	}
	if len(diffs) > 0 {
		os.Exit(1)
	}
	return nil
}

func runServe(logger *log.Logger, args []string) error {
	cmd := flag.NewFlagSet("serve", flag.ExitOnError)
	port := cmd.String("p", "8080", "port to serve on")
	cmd.Parse(args)
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: versatiles serve [-p PORT] INPUT...")
	}

	server := versatiles.NewTileServer(logger)
	for _, path := range cmd.Args() {
		r, err := versatiles.GetReader(path)
		if err != nil {
			return err
		}
		server.AddSource(sourceName(path), r)
	}

	logger.Printf("serving %d source(s) on :%s", cmd.NArg(), *port)
	return http.ListenAndServe(":"+*port, server)
}

func sourceName(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

func parseFormat(s string) (versatiles.TileFormat, error) {
	switch s {
	case "bin":
		return versatiles.FormatBIN, nil
	case "png":
		return versatiles.FormatPNG, nil
	case "jpg", "jpeg":
		return versatiles.FormatJPG, nil
	case "webp":
		return versatiles.FormatWEBP, nil
	case "avif":
		return versatiles.FormatAVIF, nil
	case "svg":
		return versatiles.FormatSVG, nil
	case "pbf":
		return versatiles.FormatPBF, nil
	case "geojson":
		return versatiles.FormatGEOJSON, nil
	case "topojson":
		return versatiles.FormatTOPOJSON, nil
	case "json":
		return versatiles.FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown tile format %q", s)
	}
}

func parseCompression(s string) (versatiles.Compression, error) {
	switch s {
	case "none":
		return versatiles.CompressionNone, nil
	case "gzip":
		return versatiles.CompressionGzip, nil
	case "brotli":
		return versatiles.CompressionBrotli, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}
