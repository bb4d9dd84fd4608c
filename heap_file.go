package godb

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// HeapFile is an unordered, page-structured on-disk table: a single
// backing file whose length is always a multiple of GetPageSize(), pages
// identified by their 0-based offset index.
type HeapFile struct {
	backingFile string
	tableID     int
	desc        *TupleDesc
	bufPool     *BufferPool
	log         *zapLogger

	mu       sync.Mutex // serializes page-count bookkeeping, not page contents
	numPages int
}

// NewHeapFile opens (creating if necessary) a heap file backed by
// fromFile. tableId is derived as the stable hash of the absolute path,
// per spec.md §3.
func NewHeapFile(fromFile string, desc *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	abs, err := filepath.Abs(fromFile)
	if err != nil {
		return nil, GoDBError{IoError, err.Error()}
	}
	f, err := os.OpenFile(fromFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, GoDBError{IoError, err.Error()}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, GoDBError{IoError, err.Error()}
	}

	hf := &HeapFile{
		backingFile: fromFile,
		tableID:     hashPath(abs),
		desc:        desc,
		bufPool:     bp,
		log:         newZapLogger("heap_file").With(zapString("file", fromFile)),
	}
	hf.numPages = numPagesForSize(info.Size())
	return hf, nil
}

func hashPath(path string) int {
	h := fnv.New32a()
	h.Write([]byte(path))
	return int(h.Sum32())
}

func numPagesForSize(size int64) int {
	ps := int64(GetPageSize())
	n := size / ps
	if size%ps != 0 {
		n++
	}
	return int(n)
}

// getID is the stable hash of the absolute backing file path.
func (f *HeapFile) getID() int {
	return f.tableID
}

// Descriptor returns this file's (constant) schema.
func (f *HeapFile) Descriptor() *TupleDesc {
	return f.desc
}

// NumPages returns ceil(fileLength / pageSize).
func (f *HeapFile) NumPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPages
}

func (f *HeapFile) pageKey(pageNo int) any {
	return PageId{TableID: f.tableID, PageNo: pageNo}
}

// readPage seeks to pid.pageNumber*PageSize, reads exactly PageSize
// bytes, and constructs a heapPage from them. Not responsible for
// caching — BufferPool owns that.
func (f *HeapFile) readPage(pageNo int) (Page, error) {
	file, err := os.Open(f.backingFile)
	if err != nil {
		return nil, GoDBError{IoError, err.Error()}
	}
	defer file.Close()

	data := make([]byte, GetPageSize())
	offset := int64(pageNo) * int64(GetPageSize())
	n, err := file.ReadAt(data, offset)
	if err != nil && err != io.EOF {
		return nil, GoDBError{IoError, err.Error()}
	}
	if n != GetPageSize() {
		return nil, GoDBError{IoError, fmt.Sprintf("short read of page %d: got %d of %d bytes", pageNo, n, GetPageSize())}
	}

	page, err := newHeapPage(f.desc, pageNo, f)
	if err != nil {
		return nil, err
	}
	if err := page.initFromBuffer(bytes.NewBuffer(data)); err != nil {
		return nil, GoDBError{IoError, err.Error()}
	}
	return page, nil
}

// writePage seeks to the page's offset and writes its exact byte image,
// extending the file if the index is at the current end.
func (f *HeapFile) writePage(p *heapPage) error {
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return GoDBError{IoError, err.Error()}
	}
	defer file.Close()

	buf, err := p.toBuffer()
	if err != nil {
		return err
	}
	offset := int64(p.pageNo) * int64(GetPageSize())
	if _, err := file.WriteAt(buf, offset); err != nil {
		return GoDBError{IoError, err.Error()}
	}
	return nil
}

// flushPage is the DBFile-facing entry point BufferPool uses to force a
// page back to disk at commit and from flushAllPages. Eviction never
// calls it: only clean pages are evicted, and they are simply dropped.
func (f *HeapFile) flushPage(p Page) error {
	hp, ok := p.(*heapPage)
	if !ok {
		return GoDBError{IncompatibleTypesError, "flushPage given a non-heap page"}
	}
	if err := f.writePage(hp); err != nil {
		return err
	}
	f.mu.Lock()
	if hp.pageNo+1 > f.numPages {
		f.numPages = hp.pageNo + 1
	}
	f.mu.Unlock()
	hp.setDirty(0, false)
	return nil
}

// insertTuple implements spec.md §4.1's policy: probe existing pages
// read-only for a free slot, re-acquire read-write on the first hit and
// insert there; failing that, append a new page. Returns the dirtied
// pages (always exactly one).
func (f *HeapFile) insertTuple(t *Tuple, tid TransactionID) ([]Page, error) {
	if len(t.Fields) != len(t.Desc.Fields) {
		return nil, GoDBError{IncompatibleTypesError, "tuple does not match this file's schema"}
	}

	n := f.NumPages()
	for pageNo := 0; pageNo < n; pageNo++ {
		probe, err := f.bufPool.GetPage(f, pageNo, tid, ReadPerm)
		if err != nil {
			return nil, err
		}
		if probe.(*heapPage).numEmptySlots() == 0 {
			continue
		}
		page, err := f.bufPool.GetPage(f, pageNo, tid, WritePerm)
		if err != nil {
			return nil, err
		}
		hp := page.(*heapPage)
		if _, err := hp.insertTuple(t); err != nil {
			if err == ErrPageFull {
				// Lost the race to another writer between probe and
				// acquire; keep scanning.
				continue
			}
			return nil, err
		}
		hp.setDirty(tid, true)
		return []Page{hp}, nil
	}

	return f.appendNewPage(t, tid)
}

// appendNewPage extends the file by one empty page, flushing it to disk
// directly (there is no tuple content yet to lose on abort), then
// fetches it through the BufferPool like any other page so the
// subsequent insert participates in normal dirty-page/commit tracking.
func (f *HeapFile) appendNewPage(t *Tuple, tid TransactionID) ([]Page, error) {
	f.mu.Lock()
	pageNo := f.numPages
	f.mu.Unlock()

	empty, err := newHeapPage(f.desc, pageNo, f)
	if err != nil {
		return nil, err
	}
	if err := f.writePage(empty); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.numPages = pageNo + 1
	f.mu.Unlock()
	f.log.Info("extended heap file", zapInt("pageNo", pageNo))

	page, err := f.bufPool.GetPage(f, pageNo, tid, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if _, err := hp.insertTuple(t); err != nil {
		return nil, err
	}
	hp.setDirty(tid, true)
	return []Page{hp}, nil
}

// deleteTuple requires t.Rid to be set; fails with TupleNotFoundError
// otherwise.
func (f *HeapFile) deleteTuple(t *Tuple, tid TransactionID) ([]Page, error) {
	rid, ok := t.Rid.(RecordId)
	if !ok {
		return nil, GoDBError{TupleNotFoundError, "tuple has no RecordId"}
	}
	page, err := f.bufPool.GetPage(f, rid.PageID.PageNo, tid, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if err := hp.deleteTuple(rid); err != nil {
		return nil, err
	}
	hp.setDirty(tid, true)
	return []Page{hp}, nil
}

// Iterator returns a standalone, closed heapFileIterator over this file.
func (f *HeapFile) Iterator(tid TransactionID) (DBFileIterator, error) {
	return &heapFileIterator{file: f, tid: tid, nextPageNo: -1}, nil
}

// heapFileIterator is the standalone state object spec.md §9's design
// note calls for in place of an inner-class / closure iterator: it holds
// exactly the inputs it needs (the file, the transaction, a page cursor)
// rather than capturing anything implicitly.
type heapFileIterator struct {
	file       *HeapFile
	tid        TransactionID
	open       bool
	nextPageNo int
	pageIter   func() (*Tuple, error)
	pending    *Tuple
}

func (it *heapFileIterator) Open() error {
	it.open = true
	it.nextPageNo = -1
	it.pageIter = nil
	return nil
}

// HasNext advances nextPageNo lazily: while the current page's tuple
// iterator is exhausted and there is a next page, fetch it (through the
// BufferPool, so in-flight dirty pages of this same transaction are
// visible) and re-arm the tuple iterator.
func (it *heapFileIterator) HasNext() (bool, error) {
	if !it.open {
		return false, nil
	}
	for {
		if it.pageIter != nil {
			t, err := it.peekNext()
			if err != nil {
				return false, err
			}
			if t != nil {
				return true, nil
			}
			it.pageIter = nil
		}
		if it.nextPageNo+1 >= it.file.NumPages() {
			return false, nil
		}
		it.nextPageNo++
		page, err := it.file.bufPool.GetPage(it.file, it.nextPageNo, it.tid, ReadPerm)
		if err != nil {
			return false, err
		}
		it.pageIter = page.(*heapPage).tupleIter()
	}
}

// peekNext caches the next tuple from the current page's iterator in
// it.pending so HasNext can answer without consuming it.
func (it *heapFileIterator) peekNext() (*Tuple, error) {
	if it.pending != nil {
		return it.pending, nil
	}
	t, err := it.pageIter()
	if err != nil {
		return nil, err
	}
	it.pending = t
	return t, nil
}

func (it *heapFileIterator) Next() (*Tuple, error) {
	if !it.open {
		return nil, GoDBError{NoSuchElementError, "next called on closed iterator"}
	}
	has, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, GoDBError{NoSuchElementError, "no more tuples"}
	}
	t := it.pending
	it.pending = nil
	return t, nil
}

func (it *heapFileIterator) Rewind() error {
	if err := it.Close(); err != nil {
		return err
	}
	return it.Open()
}

func (it *heapFileIterator) Close() error {
	it.open = false
	it.nextPageNo = -1
	it.pageIter = nil
	it.pending = nil
	return nil
}
