package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCSV parses a catalog export with a header row. The columns hr, x, y, z,
// dist and mag are required, proper is optional; other columns are ignored.
// Rows with an empty hr are kept with ID 0 and an empty mag reads as NaN, so
// a Filter can drop them.
func ReadCSV(r io.Reader) ([]Star, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading catalog header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"hr", "x", "y", "z", "dist", "mag"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog header missing column %q", required)
		}
	}

	var stars []Star
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading catalog line %d: %w", line, err)
		}

		s := Star{Mag: math.NaN()}
		if raw := strings.TrimSpace(rec[cols["hr"]]); raw != "" {
			if s.ID, err = strconv.Atoi(raw); err != nil {
				return nil, fmt.Errorf("catalog line %d: bad hr %q", line, raw)
			}
		}
		fields := []struct {
			name string
			dst  *float64
		}{
			{"x", &s.X}, {"y", &s.Y}, {"z", &s.Z}, {"dist", &s.Dist}, {"mag", &s.Mag},
		}
		for _, f := range fields {
			raw := strings.TrimSpace(rec[cols[f.name]])
			if raw == "" {
				continue
			}
			if *f.dst, err = strconv.ParseFloat(raw, 64); err != nil {
				return nil, fmt.Errorf("catalog line %d: bad %s %q", line, f.name, raw)
			}
		}
		if i, ok := cols["proper"]; ok {
			s.Proper = strings.TrimSpace(rec[i])
		}
		stars = append(stars, s)
	}
	return stars, nil
}
