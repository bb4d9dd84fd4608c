package godb

import "testing"

func TestComputeTableStats(t *testing.T) {
	hf, bp := makeTestHeapFile(t)
	tid := NewTID()
	bp.BeginTransaction(tid)
	for i := int64(0); i < 20; i++ {
		tup := &Tuple{Desc: *hf.Descriptor(), Fields: []DBValue{IntField{Value: i}, StringField{Value: "row"}}}
		if err := bp.insertTuple(tid, hf, tup); err != nil {
			t.Fatalf("insertTuple: %v", err)
		}
	}
	bp.CommitTransaction(tid)

	stats, err := ComputeTableStats(bp, hf)
	if err != nil {
		t.Fatalf("ComputeTableStats: %v", err)
	}
	if got := stats.EstimateCardinality(1.0); got != 20 {
		t.Fatalf("expected cardinality 20 at selectivity 1.0, got %d", got)
	}
	if stats.EstimateScanCost() != float64(hf.NumPages())*CostPerPage {
		t.Fatalf("unexpected scan cost %f", stats.EstimateScanCost())
	}

	sel, err := stats.EstimateSelectivity("id", OpEq, IntField{Value: 10})
	if err != nil {
		t.Fatalf("EstimateSelectivity: %v", err)
	}
	if sel <= 0 {
		t.Fatalf("expected positive selectivity for a present value, got %f", sel)
	}

	if _, err := stats.EstimateSelectivity("missing", OpEq, IntField{Value: 1}); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}
