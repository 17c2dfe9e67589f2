package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Dataset is a labelled table of feature rows in schema order.
type Dataset struct {
	Schema   *Schema
	Features [][]float64
	Labels   []int
	// Skipped counts records dropped for an unusable label or a short record.
	Skipped int
}

func (d *Dataset) Len() int { return len(d.Labels) }

func LoadDatasetFile(path, target string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDataset(f, target)
}

// LoadDataset reads a CSV with a header row. Every column other than target
// becomes a feature, in header order, coerced the same way request answers are.
func LoadDataset(r io.Reader, target string) (*Dataset, error) {
	if target == "" {
		target = DefaultTarget
	}
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	targetIdx := -1
	columns := make([]string, 0, len(header))
	for i, name := range header {
		if name == target {
			targetIdx = i
			continue
		}
		columns = append(columns, name)
	}
	if targetIdx < 0 {
		return nil, fmt.Errorf("target column %q not found", target)
	}
	schema, err := SchemaForColumns(target, columns)
	if err != nil {
		return nil, err
	}
	header = append([]string(nil), header...)
	builder := NewRowBuilder(schema)

	ds := &Dataset{Schema: schema}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				ds.Skipped++
				continue
			}
			return nil, err
		}

		// a blank label is missing, not negative
		if strings.TrimSpace(record[targetIdx]) == "" {
			ds.Skipped++
			continue
		}
		label, ok := coerceBinary(record[targetIdx])
		if !ok {
			ds.Skipped++
			continue
		}
		answers := make(AnswerSet, len(record))
		for i, value := range record {
			if i != targetIdx {
				answers[header[i]] = value
			}
		}
		row, err := builder.Build(answers)
		if err != nil {
			return nil, err
		}
		ds.Features = append(ds.Features, row.Values)
		ds.Labels = append(ds.Labels, int(label))
	}
	if ds.Len() == 0 {
		return nil, errors.New("dataset has no usable rows")
	}
	return ds, nil
}
