package godb

import (
	"bytes"
	"encoding/binary"
	"sync"
)

// heapPage implements Page for pages of a HeapFile.
//
// All tuples on a heap page are fixed length, so given a TupleDesc it is
// possible to compute how many tuple "slots" fit in a page up front. Every
// page is exactly GetPageSize() bytes: an 8-byte header (numSlots,
// numUsed, both int32) followed by the tuple slots themselves.
//
// Deletions null out a slot rather than compacting the slice, so a tuple
// read from disk keeps the same slot number for the lifetime of the page
// in memory; renumbering on flush (the teacher's page never bothers to
// avoid it) is fine because a dirty page is never evicted before it is
// flushed.
type heapPage struct {
	mu        sync.Mutex
	desc      TupleDesc
	pageNo    int
	numSlots  int32
	numUsed   int32
	tuples    []*Tuple
	file      *HeapFile
	dirty     bool
	dirtyTid  TransactionID
}

var ErrPageFull = GoDBError{PageFullError, "page is full"}

func newHeapPage(desc *TupleDesc, pageNo int, f *HeapFile) (*heapPage, error) {
	bpt := desc.bytesPerTuple()
	if bpt <= 0 {
		return nil, GoDBError{MalformedDataError, "tuple descriptor has zero-width tuples"}
	}
	numSlots := int32((GetPageSize() - 8) / bpt)
	return &heapPage{
		desc:     *desc,
		pageNo:   pageNo,
		numSlots: numSlots,
		numUsed:  0,
		tuples:   make([]*Tuple, numSlots),
		file:     f,
	}, nil
}

func (h *heapPage) getID() PageId {
	return PageId{TableID: h.file.getID(), PageNo: h.pageNo}
}

func (h *heapPage) getFile() DBFile {
	return h.file
}

func (h *heapPage) numEmptySlots() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int(h.numSlots - h.numUsed)
}

// insertTuple places t in the first free slot and sets its RecordId. It
// does not mark the page dirty; callers do that. Returns ErrPageFull if
// no slot is free.
func (h *heapPage) insertTuple(t *Tuple) (RecordId, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for slot := 0; slot < int(h.numSlots); slot++ {
		if h.tuples[slot] == nil {
			rid := RecordId{PageID: h.getID(), SlotNo: slot}
			stored := &Tuple{Desc: h.desc, Fields: t.Fields, Rid: rid}
			h.tuples[slot] = stored
			t.Rid = rid
			h.numUsed++
			return rid, nil
		}
	}
	return RecordId{}, ErrPageFull
}

// deleteTuple requires t.recordId to be non-empty (spec.md §4.1); it is
// supplied the RecordId directly since HeapFile has already validated it
// belongs to this page.
func (h *heapPage) deleteTuple(rid RecordId) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rid.SlotNo < 0 || rid.SlotNo >= int(h.numSlots) || h.tuples[rid.SlotNo] == nil {
		return GoDBError{TupleNotFoundError, "slot does not hold a tuple"}
	}
	h.tuples[rid.SlotNo] = nil
	h.numUsed--
	return nil
}

func (h *heapPage) isDirty() (TransactionID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dirtyTid, h.dirty
}

func (h *heapPage) setDirty(tid TransactionID, dirty bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirty = dirty
	if dirty {
		h.dirtyTid = tid
	} else {
		h.dirtyTid = 0
	}
}

// toBuffer serializes the page header (numSlots, numUsed as little-endian
// int32) followed by the occupied tuple slots, zero-padded to exactly
// GetPageSize() bytes.
func (h *heapPage) toBuffer() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, h.numSlots); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.numUsed); err != nil {
		return nil, err
	}
	for _, t := range h.tuples {
		if t == nil {
			continue
		}
		if err := t.writeTo(buf); err != nil {
			return nil, err
		}
	}
	if buf.Len() > GetPageSize() {
		return nil, GoDBError{MalformedDataError, "serialized page exceeds page size"}
	}
	buf.Write(make([]byte, GetPageSize()-buf.Len()))
	return buf.Bytes(), nil
}

// initFromBuffer populates h from a raw page image previously produced by
// toBuffer. Tuples retain the slot position they were written at: the
// first numUsed slots hold the live tuples (the teacher's on-disk layout
// never punches holes mid-write, so this mirrors its read path exactly).
func (h *heapPage) initFromBuffer(buf *bytes.Buffer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var numSlots, numUsed int32
	if err := binary.Read(buf, binary.LittleEndian, &numSlots); err != nil {
		return err
	}
	if err := binary.Read(buf, binary.LittleEndian, &numUsed); err != nil {
		return err
	}
	tuples := make([]*Tuple, numSlots)
	for i := 0; i < int(numUsed); i++ {
		t, err := readTupleFrom(buf, &h.desc)
		if err != nil {
			return err
		}
		t.Rid = RecordId{PageID: PageId{TableID: h.file.getID(), PageNo: h.pageNo}, SlotNo: i}
		tuples[i] = t
	}
	h.numSlots = numSlots
	h.numUsed = numUsed
	h.tuples = tuples
	h.dirty = false
	return nil
}

// tupleIter returns a closure yielding each occupied slot's tuple in slot
// order, then nil. It is deliberately simple (no external state beyond
// the cursor) — heapFileIterator is the standalone object that wraps
// page-sequencing; this is just one page's worth of tuples.
func (h *heapPage) tupleIter() func() (*Tuple, error) {
	i := 0
	return func() (*Tuple, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i < len(h.tuples) {
			t := h.tuples[i]
			i++
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	}
}
