package godb

import (
	"math/rand"
	"sync"
	"time"
)

const (
	lockRetryMinMillis = 500
	lockRetryMaxMillis = 550
	lockWaitTimeout    = 5 * time.Second
)

// BufferPool caches pages in memory and enforces strict two-phase
// locking at page granularity through an internal lockManager. It never
// steals a dirty page to make room for another (NO-STEAL) and forces
// every page a transaction touched out to disk at commit (FORCE), so
// recovery never needs to undo or redo anything: a committed
// transaction's writes are already durable, and an aborted one never
// escaped the cache.
type BufferPool struct {
	mu       sync.Mutex
	maxPages int
	pages    map[PageId]Page
	lm       *lockManager
	log      *zapLogger
}

// NewBufferPool creates a pool that holds at most numPages pages.
func NewBufferPool(numPages int) *BufferPool {
	return &BufferPool{
		maxPages: numPages,
		pages:    make(map[PageId]Page),
		lm:       newLockManager(),
		log:      newZapLogger("buffer_pool"),
	}
}

// GetPage returns the page (pageNo) of file, acquiring the requested
// lock for tid first. Lock acquisition retries on a randomized
// 500-550ms interval; if tid has not been granted the lock within
// lockWaitTimeout cumulative, GetPage aborts tid's locks and returns a
// TransactionAborted error (the deadlock-avoidance mechanism spec.md
// calls for in place of cycle detection).
func (bp *BufferPool) GetPage(file DBFile, pageNo int, tid TransactionID, perm RWPerm) (Page, error) {
	pid := PageId{TableID: file.getID(), PageNo: pageNo}

	deadline := time.Now().Add(lockWaitTimeout)
	for {
		if bp.lm.acquire(pid, tid, perm) {
			break
		}
		if time.Now().After(deadline) {
			bp.log.Warn("lock wait timed out, aborting transaction",
				zapInt64("tid", int64(tid)), zapString("page", pid.String()))
			bp.lm.releaseAll(tid)
			return nil, GoDBError{TransactionAbortedError, "timed out waiting for page lock"}
		}
		sleep := time.Duration(lockRetryMinMillis+rand.Intn(lockRetryMaxMillis-lockRetryMinMillis)) * time.Millisecond
		time.Sleep(sleep)
	}

	bp.mu.Lock()
	if page, ok := bp.pages[pid]; ok {
		bp.mu.Unlock()
		return page, nil
	}
	bp.mu.Unlock()

	page, err := file.readPage(pageNo)
	if err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if _, ok := bp.pages[pid]; !ok {
		if len(bp.pages) >= bp.maxPages {
			if err := bp.evictPageLocked(); err != nil {
				return nil, err
			}
		}
		bp.pages[pid] = page
	}
	return bp.pages[pid], nil
}

// unsafeReleasePage drops tid's lock on pid without any of the
// commit/abort bookkeeping transactionComplete performs. Exists for
// callers (and tests) that know precisely what they are doing: releasing
// early breaks strict two-phase locking's isolation guarantee.
func (bp *BufferPool) unsafeReleasePage(pid PageId, tid TransactionID) {
	bp.lm.release(pid, tid)
}

// holdsLock reports whether tid currently holds a lock of any kind on pid.
func (bp *BufferPool) holdsLock(pid PageId, tid TransactionID) bool {
	return bp.lm.holdsLock(pid, tid)
}

// BeginTransaction records nothing and always returns nil. Locking is
// acquired lazily by GetPage, so there is no bookkeeping to do here; it
// exists to give callers a symmetric Begin/Commit/Abort API.
func (bp *BufferPool) BeginTransaction(tid TransactionID) error {
	return nil
}

// CommitTransaction commits tid: flushes its dirty pages and releases
// its locks.
func (bp *BufferPool) CommitTransaction(tid TransactionID) {
	bp.transactionComplete(tid, true)
}

// AbortTransaction aborts tid: discards its dirty pages and releases its
// locks.
func (bp *BufferPool) AbortTransaction(tid TransactionID) {
	bp.transactionComplete(tid, false)
}

// transactionComplete ends tid, either committing or aborting its
// writes, and releases every lock it held. On commit every dirty page it
// touched is flushed (FORCE); on abort every page it dirtied is dropped
// from the cache so a later read re-fetches the last durable image.
// Clean pages it only read stay cached, since they match the disk.
func (bp *BufferPool) transactionComplete(tid TransactionID, commit bool) {
	pages := bp.lm.pagesHeldBy(tid)

	bp.mu.Lock()
	for _, pid := range pages {
		page, ok := bp.pages[pid]
		if !ok {
			continue
		}
		dirtyTid, dirty := page.isDirty()
		if !dirty || dirtyTid != tid {
			continue
		}
		if commit {
			if err := page.getFile().flushPage(page); err != nil {
				bp.log.Error("flush on commit failed",
					zapInt64("tid", int64(tid)), zapString("page", pid.String()))
			}
		} else {
			delete(bp.pages, pid)
		}
	}
	bp.mu.Unlock()

	bp.lm.releaseAll(tid)
}

// insertTuple delegates to file's insertTuple and marks every page it
// returns dirty for tid, installing any not already cached.
func (bp *BufferPool) insertTuple(tid TransactionID, file DBFile, t *Tuple) error {
	dirtied, err := file.insertTuple(t, tid)
	if err != nil {
		return err
	}
	bp.installDirty(file, dirtied, tid)
	return nil
}

// deleteTuple delegates to file's deleteTuple and marks every page it
// returns dirty for tid.
func (bp *BufferPool) deleteTuple(tid TransactionID, file DBFile, t *Tuple) error {
	dirtied, err := file.deleteTuple(t, tid)
	if err != nil {
		return err
	}
	bp.installDirty(file, dirtied, tid)
	return nil
}

func (bp *BufferPool) installDirty(file DBFile, pages []Page, tid TransactionID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, p := range pages {
		p.setDirty(tid, true)
		bp.pages[p.getID()] = p
	}
}

// flushAllPages writes every dirty page in the cache back to its file,
// regardless of owning transaction. Intended for tests and clean
// shutdown, never for normal operation (it bypasses the commit
// protocol's locking).
func (bp *BufferPool) flushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, page := range bp.pages {
		if _, dirty := page.isDirty(); dirty {
			if err := page.getFile().flushPage(page); err != nil {
				return err
			}
			page.setDirty(0, false)
		}
	}
	return nil
}

// discardPage drops pid from the cache without flushing it, regardless
// of dirty state. Test-only escape hatch.
func (bp *BufferPool) discardPage(pid PageId) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	delete(bp.pages, pid)
}

// evictPageLocked removes one clean page from the cache to make room.
// Caller must hold bp.mu. NO-STEAL: a page dirtied by an uncommitted
// transaction is never evicted, so if every cached page is dirty there
// is nothing safe to evict and the pool reports itself full.
func (bp *BufferPool) evictPageLocked() error {
	for pid, page := range bp.pages {
		if _, dirty := page.isDirty(); !dirty {
			delete(bp.pages, pid)
			return nil
		}
	}
	return GoDBError{BufferPoolFullError, "buffer pool full of dirty pages, cannot evict"}
}
