package godb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// DBType is the type of a tuple field: IntType or StringType.
type DBType int

const (
	IntType DBType = iota
	StringType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// BoolOp is a comparison operator used by DBValue.EvalPred and by
// selectivity estimation.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// FieldType names and types a single column of a TupleDesc.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// TupleDesc is the schema of a tuple: an ordered list of field types. It is
// fixed-width: every field occupies the same number of bytes on every
// tuple with this descriptor, which is what lets HeapPage compute a slot
// count from the page size alone.
type TupleDesc struct {
	Fields []FieldType
}

func (td *TupleDesc) equals(other *TupleDesc) bool {
	if len(td.Fields) != len(other.Fields) {
		return false
	}
	for i := range td.Fields {
		if td.Fields[i].Fname != other.Fields[i].Fname || td.Fields[i].Ftype != other.Fields[i].Ftype {
			return false
		}
	}
	return true
}

func (td *TupleDesc) copy() *TupleDesc {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	return &TupleDesc{Fields: fields}
}

func (td *TupleDesc) merge(other *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(td.Fields)+len(other.Fields))
	fields = append(fields, td.Fields...)
	fields = append(fields, other.Fields...)
	return &TupleDesc{Fields: fields}
}

// bytesPerTuple is the fixed on-disk size, in bytes, of a tuple with this
// descriptor: 8 bytes per int64 field, StringLength bytes per string field.
func (td *TupleDesc) bytesPerTuple() int {
	size := 0
	for _, f := range td.Fields {
		switch f.Ftype {
		case IntType:
			size += 8
		case StringType:
			size += StringLength
		}
	}
	return size
}

// DBValue is the value of a single tuple field. IntField and StringField
// are the only implementations the core storage layer needs to know
// about; a richer query layer could add more without touching this
// package.
type DBValue interface {
	EvalPred(other DBValue, op BoolOp) bool
}

// IntField is an integer-valued field.
type IntField struct {
	Value int64
}

func (f IntField) EvalPred(other DBValue, op BoolOp) bool {
	o, ok := other.(IntField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == o.Value
	case OpNe:
		return f.Value != o.Value
	case OpLt:
		return f.Value < o.Value
	case OpLe:
		return f.Value <= o.Value
	case OpGt:
		return f.Value > o.Value
	case OpGe:
		return f.Value >= o.Value
	}
	return false
}

// StringField is a string-valued field.
type StringField struct {
	Value string
}

func (f StringField) EvalPred(other DBValue, op BoolOp) bool {
	o, ok := other.(StringField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == o.Value
	case OpNe:
		return f.Value != o.Value
	case OpLt:
		return f.Value < o.Value
	case OpLe:
		return f.Value <= o.Value
	case OpGt:
		return f.Value > o.Value
	case OpGe:
		return f.Value >= o.Value
	}
	return false
}

// recordID is the opaque type stored in Tuple.Rid once a tuple has been
// placed on a page. HeapFile uses a concrete RecordId (see heap_file.go).
type recordID interface{}

// GroupKey is the tagged-variant "group key or absent" model spec.md's
// design notes call for, in place of a nullable Field. The zero value
// (HasGroup == false) is the NO_GROUPING sentinel.
type GroupKey struct {
	HasGroup bool
	Value    DBValue
}

// NoGrouping is the sentinel GroupKey used when an aggregator has no
// group-by field configured.
var NoGrouping = GroupKey{}

// Tuple is a row: its schema plus one DBValue per field, plus the record
// id it was read from (nil until placed on a page).
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    recordID
}

func (t *Tuple) equals(other *Tuple) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !t.Desc.equals(&other.Desc) || len(t.Fields) != len(other.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

func writeIntField(b *bytes.Buffer, f IntField) error {
	return binary.Write(b, binary.LittleEndian, f.Value)
}

func writeStringField(b *bytes.Buffer, f StringField) error {
	padded := make([]byte, StringLength)
	copy(padded, []byte(f.Value))
	return binary.Write(b, binary.LittleEndian, padded)
}

// writeTo serializes the tuple's fields, in order, to b. Tuples are fixed
// width, so no length prefix or delimiter is written.
func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for _, field := range t.Fields {
		switch v := field.(type) {
		case IntField:
			if err := writeIntField(b, v); err != nil {
				return err
			}
		case StringField:
			if err := writeStringField(b, v); err != nil {
				return err
			}
		default:
			return GoDBError{MalformedDataError, fmt.Sprintf("unsupported field type %T", field)}
		}
	}
	return nil
}

func readIntField(b *bytes.Buffer) (IntField, error) {
	var v int64
	if err := binary.Read(b, binary.LittleEndian, &v); err != nil {
		return IntField{}, err
	}
	return IntField{Value: v}, nil
}

func readStringField(b *bytes.Buffer) (StringField, error) {
	raw := make([]byte, StringLength)
	if err := binary.Read(b, binary.LittleEndian, raw); err != nil {
		return StringField{}, err
	}
	return StringField{Value: strings.TrimRight(string(raw), "\x00")}, nil
}

// readTupleFrom deserializes one tuple with the given descriptor from b.
func readTupleFrom(b *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	t := &Tuple{Desc: *desc}
	for _, ft := range desc.Fields {
		switch ft.Ftype {
		case IntType:
			f, err := readIntField(b)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, f)
		case StringType:
			f, err := readStringField(b)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, f)
		}
	}
	return t, nil
}
