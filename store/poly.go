package store

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParsePoly parses an Osmosis polygon filter file into a WKT MULTIPOLYGON.
// Each section is a ring of "lon lat" lines terminated by END. Sections whose
// name begins with '!' are holes of the preceding outer ring.
func ParsePoly(r io.Reader) (string, error) {
	var (
		sc       = bufio.NewScanner(r)
		polygons [][]string // Rings of each polygon. Outer ring first.
		ring     []string
		hole     bool
		inRing   bool
		named    bool
		lineNo   int
	)

	for sc.Scan() {
		lineNo++
		var line = strings.TrimSpace(sc.Text())

		switch {
		case line == "":
			continue
		case !named:
			named = true // File name line.
		case !inRing && line == "END":
			return toMultiPolygon(polygons)
		case !inRing:
			inRing, ring = true, nil
			hole = strings.HasPrefix(line, "!")
		case line == "END":
			inRing = false
			if len(ring) < 3 {
				return "", errors.Errorf("line %d: ring has fewer than three points", lineNo)
			}
			if ring[0] != ring[len(ring)-1] {
				ring = append(ring, ring[0])
			}
			var wkt = "(" + strings.Join(ring, ", ") + ")"

			if hole {
				if len(polygons) == 0 {
					return "", errors.Errorf("line %d: hole precedes outer ring", lineNo)
				}
				polygons[len(polygons)-1] = append(polygons[len(polygons)-1], wkt)
			} else {
				polygons = append(polygons, []string{wkt})
			}
		default:
			var f = strings.Fields(line)
			if len(f) != 2 {
				return "", errors.Errorf("line %d: expected longitude and latitude", lineNo)
			}
			for _, v := range f {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					return "", errors.Errorf("line %d: invalid coordinate %q", lineNo, v)
				}
			}
			ring = append(ring, f[0]+" "+f[1])
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.New("unexpected end of polygon file")
}

func toMultiPolygon(polygons [][]string) (string, error) {
	if len(polygons) == 0 {
		return "", errors.New("polygon file has no rings")
	}
	var parts = make([]string, len(polygons))
	for i, p := range polygons {
		parts[i] = "(" + strings.Join(p, ", ") + ")"
	}
	return "MULTIPOLYGON(" + strings.Join(parts, ", ") + ")", nil
}
