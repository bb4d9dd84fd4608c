package godb

import (
	"bytes"
	"testing"
)

func testTupleDesc() TupleDesc {
	return TupleDesc{Fields: []FieldType{
		{Fname: "id", Ftype: IntType},
		{Fname: "name", Ftype: StringType},
	}}
}

func TestTupleDescEquals(t *testing.T) {
	a := testTupleDesc()
	b := testTupleDesc()
	if !a.equals(&b) {
		t.Fatalf("expected equal descriptors")
	}
	b.Fields[0].Fname = "other"
	if a.equals(&b) {
		t.Fatalf("expected unequal descriptors after rename")
	}
}

func TestTupleDescMerge(t *testing.T) {
	a := testTupleDesc()
	b := TupleDesc{Fields: []FieldType{{Fname: "extra", Ftype: IntType}}}
	merged := a.merge(&b)
	if len(merged.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(merged.Fields))
	}
}

func TestBytesPerTuple(t *testing.T) {
	desc := testTupleDesc()
	if got := desc.bytesPerTuple(); got != 8+StringLength {
		t.Fatalf("expected %d bytes, got %d", 8+StringLength, got)
	}
}

func TestTupleRoundTrip(t *testing.T) {
	desc := testTupleDesc()
	tup := &Tuple{Desc: desc, Fields: []DBValue{IntField{Value: 42}, StringField{Value: "hello"}}}

	buf := new(bytes.Buffer)
	if err := tup.writeTo(buf); err != nil {
		t.Fatalf("writeTo: %v", err)
	}

	back, err := readTupleFrom(buf, &desc)
	if err != nil {
		t.Fatalf("readTupleFrom: %v", err)
	}
	if !tup.equals(back) {
		t.Fatalf("round-tripped tuple differs: got %+v want %+v", back, tup)
	}
}

func TestIntFieldEvalPred(t *testing.T) {
	cases := []struct {
		a, b int64
		op   BoolOp
		want bool
	}{
		{1, 1, OpEq, true},
		{1, 2, OpEq, false},
		{1, 2, OpNe, true},
		{1, 2, OpLt, true},
		{2, 1, OpGt, true},
		{2, 2, OpLe, true},
		{2, 2, OpGe, true},
	}
	for _, c := range cases {
		got := IntField{Value: c.a}.EvalPred(IntField{Value: c.b}, c.op)
		if got != c.want {
			t.Errorf("IntField{%d}.EvalPred(%d, %v) = %v, want %v", c.a, c.b, c.op, got, c.want)
		}
	}
}

func TestGroupKeyNoGrouping(t *testing.T) {
	if NoGrouping.HasGroup {
		t.Fatalf("NoGrouping sentinel must have HasGroup == false")
	}
}
