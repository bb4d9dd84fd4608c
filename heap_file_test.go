package godb

import "testing"

func scanAll(t *testing.T, hf *HeapFile, tid TransactionID) []*Tuple {
	t.Helper()
	it, err := hf.Iterator(tid)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	if err := it.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer it.Close()

	var out []*Tuple
	for {
		has, err := it.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !has {
			break
		}
		tup, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, tup)
	}
	return out
}

func TestHeapFileInsertAndScan(t *testing.T) {
	hf, bp := makeTestHeapFile(t)
	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}

	for i := 0; i < 5; i++ {
		tup := &Tuple{Desc: *hf.Descriptor(), Fields: []DBValue{IntField{Value: int64(i)}, StringField{Value: "row"}}}
		if err := bp.insertTuple(tid, hf, tup); err != nil {
			t.Fatalf("insertTuple %d: %v", i, err)
		}
	}
	bp.CommitTransaction(tid)

	tid2 := NewTID()
	if err := bp.BeginTransaction(tid2); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	tuples := scanAll(t, hf, tid2)
	bp.CommitTransaction(tid2)

	if len(tuples) != 5 {
		t.Fatalf("expected 5 tuples, got %d", len(tuples))
	}
}

func TestHeapFileSpansMultiplePages(t *testing.T) {
	// makeTestHeapFile resets the page size, so shrink it afterwards.
	hf, bp := makeTestHeapFile(t)
	SetPageSize(128)
	defer ResetPageSize()

	tid := NewTID()
	if err := bp.BeginTransaction(tid); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}

	// 128-byte pages hold 3 tuples each, so 20 tuples fill 7 pages: more
	// than one, yet within the pool's 10 pages, which must hold every
	// page this single uncommitted transaction dirties (NO-STEAL).
	const n = 20
	for i := 0; i < n; i++ {
		tup := &Tuple{Desc: *hf.Descriptor(), Fields: []DBValue{IntField{Value: int64(i)}, StringField{Value: "row"}}}
		if err := bp.insertTuple(tid, hf, tup); err != nil {
			t.Fatalf("insertTuple %d: %v", i, err)
		}
	}
	bp.CommitTransaction(tid)

	if hf.NumPages() < 2 {
		t.Fatalf("expected file to span multiple pages, has %d", hf.NumPages())
	}

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	tuples := scanAll(t, hf, tid2)
	bp.CommitTransaction(tid2)
	if len(tuples) != n {
		t.Fatalf("expected %d tuples, got %d", n, len(tuples))
	}
}

func TestHeapFileDeleteTuple(t *testing.T) {
	hf, bp := makeTestHeapFile(t)
	tid := NewTID()
	bp.BeginTransaction(tid)

	tup := &Tuple{Desc: *hf.Descriptor(), Fields: []DBValue{IntField{Value: 1}, StringField{Value: "a"}}}
	if err := bp.insertTuple(tid, hf, tup); err != nil {
		t.Fatalf("insertTuple: %v", err)
	}
	if err := bp.deleteTuple(tid, hf, tup); err != nil {
		t.Fatalf("deleteTuple: %v", err)
	}
	bp.CommitTransaction(tid)

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	tuples := scanAll(t, hf, tid2)
	bp.CommitTransaction(tid2)
	if len(tuples) != 0 {
		t.Fatalf("expected 0 tuples after delete, got %d", len(tuples))
	}
}

func TestHeapFileRewind(t *testing.T) {
	hf, bp := makeTestHeapFile(t)
	tid := NewTID()
	bp.BeginTransaction(tid)
	tup := &Tuple{Desc: *hf.Descriptor(), Fields: []DBValue{IntField{Value: 1}, StringField{Value: "a"}}}
	if err := bp.insertTuple(tid, hf, tup); err != nil {
		t.Fatalf("insertTuple: %v", err)
	}
	bp.CommitTransaction(tid)

	tid2 := NewTID()
	bp.BeginTransaction(tid2)
	it, err := hf.Iterator(tid2)
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	it.Open()
	first := scanCount(t, it)
	if err := it.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	second := scanCount(t, it)
	it.Close()
	bp.CommitTransaction(tid2)

	if first != second || first != 1 {
		t.Fatalf("expected identical single-tuple scans before/after rewind, got %d and %d", first, second)
	}
}

func scanCount(t *testing.T, it DBFileIterator) int {
	t.Helper()
	n := 0
	for {
		has, err := it.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !has {
			break
		}
		if _, err := it.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
		n++
	}
	return n
}
