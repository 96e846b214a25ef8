package dataset

import (
	"strconv"
	"strings"
)

const sampleRowLimit = 5

// Column describes one column of an uploaded dataset.
type Column struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // numeric or categorical
	Nulls    int      `json:"nulls"`
	Distinct int      `json:"distinct"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Mean     *float64 `json:"mean,omitempty"`
}

// Profile is the dataset summary sent to the AI clean-data and analyze-data
// endpoints and returned to the uploader.
type Profile struct {
	FileName   string              `json:"fileName"`
	Rows       int                 `json:"rows"`
	Columns    []Column            `json:"columns"`
	SampleRows []map[string]string `json:"sampleRows"`
}

// BuildProfile computes per-column stats over the parsed table. A column is
// numeric when every non-empty cell parses as a float.
func BuildProfile(t *Table) *Profile {
	profile := &Profile{
		FileName: t.FileName,
		Rows:     len(t.Rows),
		Columns:  make([]Column, 0, len(t.Header)),
	}

	for i, name := range t.Header {
		col := Column{Name: strings.TrimSpace(name)}

		distinct := make(map[string]struct{})
		var sum float64
		var count int
		var min, max float64
		numeric := true

		for _, row := range t.Rows {
			if i >= len(row) {
				col.Nulls++
				continue
			}
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				col.Nulls++
				continue
			}
			distinct[cell] = struct{}{}

			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				numeric = false
				continue
			}
			if count == 0 || v < min {
				min = v
			}
			if count == 0 || v > max {
				max = v
			}
			sum += v
			count++
		}

		col.Distinct = len(distinct)
		if numeric && count > 0 {
			col.Type = "numeric"
			mean := sum / float64(count)
			col.Min, col.Max, col.Mean = &min, &max, &mean
		} else {
			col.Type = "categorical"
		}

		profile.Columns = append(profile.Columns, col)
	}

	limit := sampleRowLimit
	if len(t.Rows) < limit {
		limit = len(t.Rows)
	}
	for _, row := range t.Rows[:limit] {
		sample := make(map[string]string, len(t.Header))
		for i, name := range t.Header {
			if i < len(row) {
				sample[name] = row[i]
			} else {
				sample[name] = ""
			}
		}
		profile.SampleRows = append(profile.SampleRows, sample)
	}

	return profile
}

// FeatureNames returns the column names, used when staging the dataset info
// for detected models.
func (p *Profile) FeatureNames() []string {
	names := make([]string, 0, len(p.Columns))
	for _, c := range p.Columns {
		names = append(names, c.Name)
	}
	return names
}
