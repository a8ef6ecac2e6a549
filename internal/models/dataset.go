package models

import "iter"

// Dataset is an ordered, immutable collection of cleaned records. The
// constructor and accessors copy, so a Dataset cannot be mutated through
// the slices that built it or that it hands out.
type Dataset struct {
	records []Record
}

func NewDataset(records []Record) Dataset {
	cp := make([]Record, len(records))
	copy(cp, records)
	return Dataset{records: cp}
}

func (d Dataset) Len() int {
	return len(d.records)
}

func (d Dataset) At(i int) Record {
	return d.records[i]
}

// Records returns a copy of the underlying records.
func (d Dataset) Records() []Record {
	cp := make([]Record, len(d.records))
	copy(cp, d.records)
	return cp
}

// All iterates records in order.
func (d Dataset) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range d.records {
			if !yield(r) {
				return
			}
		}
	}
}

// Column extracts one numeric field from every record, in order.
func (d Dataset) Column(f Field) []float64 {
	out := make([]float64, len(d.records))
	for i, r := range d.records {
		out[i] = r.Value(f)
	}
	return out
}
