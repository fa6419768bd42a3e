package versatiles

import (
	"bytes"
	"fmt"
)

// Compare diffs two readers tile-by-tile over their intersected bbox
// pyramid, the basis for the CLI's "compare" verb. It returns one line per
// mismatching coordinate; an empty result means the readers agree on every
// shared coordinate (the CLI exits 0 in that case, non-zero otherwise).
func Compare(a, b Reader) ([]string, error) {
	pa := a.GetParameters().BBoxPyramid
	pb := b.GetParameters().BBoxPyramid
	shared := pa.Intersect(pb)

	var diffs []string
	var outerErr error
	for _, lvl := range shared.IterLevels() {
		lvl.BBox.ForEachCoord(func(c TileCoord3) {
			if outerErr != nil {
				return
			}
			da, okA, err := a.GetTileData(c)
			if err != nil {
				outerErr = err
				return
			}
			db, okB, err := b.GetTileData(c)
			if err != nil {
				outerErr = err
				return
			}
			switch {
			case okA != okB:
				diffs = append(diffs, fmt.Sprintf("%d/%d/%d: present in a=%v present in b=%v", c.Z, c.X, c.Y, okA, okB))
			case okA && okB && !bytes.Equal(da.Bytes(), db.Bytes()):
				diffs = append(diffs, fmt.Sprintf("%d/%d/%d: byte length %d vs %d differ", c.Z, c.X, c.Y, da.Len(), db.Len()))
			}
		})
		if outerErr != nil {
			return nil, outerErr
		}
	}
	return diffs, nil
}
