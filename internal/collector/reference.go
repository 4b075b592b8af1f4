package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
)

// Reference is the enrichment data the CSV reference file carries for one
// facility id.
type Reference struct {
	Website string
	Mobile  *bool
}

// ReferenceSource reads the per-facility reference CSV: website URLs and
// mobile flags keyed by canonical facility id.
type ReferenceSource struct {
	path string
}

func NewReferenceSource(path string) *ReferenceSource {
	return &ReferenceSource{path: path}
}

type referenceRow struct {
	FacilityID string `csv:"facility_id"`
	Website    string `csv:"website"`
	Mobile     string `csv:"mobile"`
}

// Load parses the reference file into a lookup by facility id. Later rows
// for the same id win, matching how the file is maintained by appending.
func (s *ReferenceSource) Load(ctx context.Context) (map[string]Reference, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open reference file: %w", err)
	}
	defer f.Close()

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read reference header: %w", err)
	}

	out := make(map[string]Reference)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var row referenceRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode reference row: %w", err)
		}
		if row.FacilityID == "" {
			continue
		}
		ref := Reference{Website: strings.TrimSpace(row.Website)}
		switch strings.ToLower(strings.TrimSpace(row.Mobile)) {
		case "true", "yes", "1":
			v := true
			ref.Mobile = &v
		case "false", "no", "0":
			v := false
			ref.Mobile = &v
		}
		out[strings.TrimSpace(row.FacilityID)] = ref
	}
	return out, nil
}
