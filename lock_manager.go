package godb

import "sync"

// RWPerm is the permission a transaction requests a page with: ReadPerm
// for a shared lock, WritePerm for exclusive.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

// lockManager tracks, per page, which transactions hold which lock mode.
// It never blocks: acquire reports grant/deny immediately and BufferPool
// is responsible for the retry-with-timeout loop. This mirrors the
// conflict-bookkeeping style of a dependency-tracking buffer pool, pared
// down to the single mutex + map spec.md's contract calls for (no cycle
// detection — BufferPool's timeout is the deadlock-avoidance mechanism).
type lockManager struct {
	mu    sync.Mutex
	locks map[PageId]map[TransactionID]RWPerm
	log   *zapLogger
}

func newLockManager() *lockManager {
	return &lockManager{
		locks: make(map[PageId]map[TransactionID]RWPerm),
		log:   newZapLogger("lock_manager"),
	}
}

// acquire attempts to grant tid the requested permission on pid without
// blocking. Returns true if the lock is now held.
//
// Grant rules:
//   - ReadPerm: granted if there is no exclusive holder, or tid itself is
//     the exclusive holder (write lock implies read access).
//   - WritePerm: granted if tid already holds exclusive; or if there is no
//     exclusive holder and the only shared holder (if any) is tid itself
//     (lock upgrade).
func (lm *lockManager) acquire(pid PageId, tid TransactionID, perm RWPerm) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	holders := lm.locks[pid]

	if perm == ReadPerm {
		if _, ok := holders[tid]; ok {
			return true
		}
		for _, mode := range holders {
			if mode == WritePerm {
				lm.log.Debug("read lock denied, page held exclusively",
					zapString("page", pid.String()), zapInt64("tid", int64(tid)))
				return false
			}
		}
		lm.grant(pid, tid, ReadPerm)
		return true
	}

	// WritePerm.
	if mode, ok := holders[tid]; ok && mode == WritePerm {
		return true
	}
	for other := range holders {
		if other == tid {
			continue
		}
		lm.log.Debug("write lock denied, page held by another transaction",
			zapString("page", pid.String()), zapInt64("tid", int64(tid)))
		return false
	}
	lm.grant(pid, tid, WritePerm)
	return true
}

func (lm *lockManager) grant(pid PageId, tid TransactionID, perm RWPerm) {
	holders, ok := lm.locks[pid]
	if !ok {
		holders = make(map[TransactionID]RWPerm)
		lm.locks[pid] = holders
	}
	holders[tid] = perm
}

// holdsLock reports whether tid currently holds any lock on pid.
func (lm *lockManager) holdsLock(pid PageId, tid TransactionID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	_, ok := lm.locks[pid][tid]
	return ok
}

// release drops tid's lock on pid, if any. Safe to call even if tid
// holds no lock on pid.
func (lm *lockManager) release(pid PageId, tid TransactionID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	holders := lm.locks[pid]
	if holders == nil {
		return
	}
	delete(holders, tid)
	if len(holders) == 0 {
		delete(lm.locks, pid)
	}
}

// releaseAll drops every lock tid holds, across all pages. Called at
// transaction commit or abort.
func (lm *lockManager) releaseAll(tid TransactionID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for pid, holders := range lm.locks {
		if _, ok := holders[tid]; ok {
			delete(holders, tid)
			if len(holders) == 0 {
				delete(lm.locks, pid)
			}
		}
	}
}

// pagesHeldBy lists every page tid currently holds a lock on.
func (lm *lockManager) pagesHeldBy(tid TransactionID) []PageId {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	var pages []PageId
	for pid, holders := range lm.locks {
		if _, ok := holders[tid]; ok {
			pages = append(pages, pid)
		}
	}
	return pages
}
