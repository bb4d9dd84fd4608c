package godb

import (
	"fmt"
	"math"
)

// CostPerPage is the assumed cost to read one page from disk, with no
// seeks and nothing already cached. Tunable per storage device.
const CostPerPage = 1000

// NumHistBins is the default bucket count used when building a fresh
// IntHistogram for a column.
const NumHistBins = 100

// Stats is the cost-estimation surface a query planner (out of scope
// here) would consult to pick a join order or access path.
type Stats interface {
	EstimateScanCost() float64
	EstimateCardinality(selectivity float64) int
	EstimateSelectivity(field string, op BoolOp, value DBValue) (float64, error)
}

// TableStats holds per-column histograms for one table, built once from
// full scans of the table and reused across many selectivity estimates.
type TableStats struct {
	basePages int
	baseTups  int
	intHists  map[string]*IntHistogram
	strHists  map[string]*StringHistogram
	desc      *TupleDesc
}

func tableMinMax(tid TransactionID, dbFile DBFile) ([]int64, []int64, error) {
	desc := dbFile.Descriptor()
	mins := make([]int64, len(desc.Fields))
	maxs := make([]int64, len(desc.Fields))
	for i := range mins {
		mins[i] = math.MaxInt64
		maxs[i] = math.MinInt64
	}

	it, err := dbFile.Iterator(tid)
	if err != nil {
		return nil, nil, err
	}
	if err := it.Open(); err != nil {
		return nil, nil, err
	}
	defer it.Close()

	for {
		has, err := it.HasNext()
		if err != nil {
			return nil, nil, err
		}
		if !has {
			break
		}
		t, err := it.Next()
		if err != nil {
			return nil, nil, err
		}
		for i, f := range desc.Fields {
			if f.Ftype != IntType {
				continue
			}
			v := t.Fields[i].(IntField).Value
			if v < mins[i] {
				mins[i] = v
			}
			if v > maxs[i] {
				maxs[i] = v
			}
		}
	}
	for i := range mins {
		if mins[i] > maxs[i] {
			mins[i], maxs[i] = 0, 0
		}
	}
	return mins, maxs, nil
}

// ComputeTableStats scans dbFile twice, inside its own short-lived
// transaction: first to find each int column's min and max, then to fill
// an IntHistogram or StringHistogram per column.
func ComputeTableStats(bp *BufferPool, dbFile DBFile) (*TableStats, error) {
	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		return nil, err
	}
	defer bp.CommitTransaction(tid)

	desc := dbFile.Descriptor()
	mins, maxs, err := tableMinMax(tid, dbFile)
	if err != nil {
		return nil, err
	}

	intHists := make(map[string]*IntHistogram)
	strHists := make(map[string]*StringHistogram)
	for i, f := range desc.Fields {
		switch f.Ftype {
		case IntType:
			intHists[f.Fname] = NewIntHistogram(NumHistBins, mins[i], maxs[i])
		case StringType:
			strHists[f.Fname] = NewStringHistogram()
		}
	}

	it, err := dbFile.Iterator(tid)
	if err != nil {
		return nil, err
	}
	if err := it.Open(); err != nil {
		return nil, err
	}
	defer it.Close()

	baseTups := 0
	for {
		has, err := it.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := it.Next()
		if err != nil {
			return nil, err
		}
		for i, f := range desc.Fields {
			switch f.Ftype {
			case IntType:
				intHists[f.Fname].AddValue(t.Fields[i].(IntField).Value)
			case StringType:
				strHists[f.Fname].AddValue(t.Fields[i].(StringField).Value)
			}
		}
		baseTups++
	}

	return &TableStats{
		basePages: dbFile.NumPages(),
		baseTups:  baseTups,
		intHists:  intHists,
		strHists:  strHists,
		desc:      desc,
	}, nil
}

// EstimateScanCost is the cost of a full sequential scan: one page read
// per page, regardless of how full the last page is.
func (t *TableStats) EstimateScanCost() float64 {
	return float64(t.basePages) * CostPerPage
}

// EstimateCardinality is the expected row count after applying a filter
// of the given selectivity.
func (t *TableStats) EstimateCardinality(selectivity float64) int {
	return int(float64(t.baseTups) * selectivity)
}

// EstimateSelectivity looks up field's histogram and delegates to it.
func (t *TableStats) EstimateSelectivity(field string, op BoolOp, value DBValue) (float64, error) {
	if h, ok := t.intHists[field]; ok {
		v, ok := value.(IntField)
		if !ok {
			return 1.0, GoDBError{IncompatibleTypesError, fmt.Sprintf("field %q is int, value is not", field)}
		}
		return h.EstimateSelectivity(op, v.Value), nil
	}
	if h, ok := t.strHists[field]; ok {
		v, ok := value.(StringField)
		if !ok {
			return 1.0, GoDBError{IncompatibleTypesError, fmt.Sprintf("field %q is string, value is not", field)}
		}
		return h.EstimateSelectivity(op, v.Value), nil
	}
	return 1.0, GoDBError{DbError, fmt.Sprintf("no histogram for field %q", field)}
}
