// Package viewinfo tracks what a layout pass did to each view holder so the
// animation layer can tell disappearing, appearing and persistent holders
// apart.
package viewinfo

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/listkit/pkg/observability"
)

// Record flags.
const (
	FlagDisappeared = 1 << iota
	FlagAppear
	FlagPre
	FlagPost

	FlagAppearAndDisappear = FlagAppear | FlagDisappeared
	FlagPreAndPost         = FlagPre | FlagPost
	FlagAppearPreAndPost   = FlagAppear | FlagPre | FlagPost
)

// PoolSize is the number of released records a Store keeps for reuse.
const PoolSize = 20

// ItemHolderInfo is the bounds of a holder's view at one layout step.
type ItemHolderInfo struct {
	Left        int
	Top         int
	Right       int
	Bottom      int
	ChangeFlags int
}

// ProcessCallback receives the classification of every tracked holder.
type ProcessCallback[H comparable] interface {
	ProcessDisappeared(holder H, pre, post *ItemHolderInfo)
	ProcessAppeared(holder H, pre, post *ItemHolderInfo)
	ProcessPersistent(holder H, pre, post *ItemHolderInfo)
	Unused(holder H)
}

type infoRecord struct {
	flags int
	pre   *ItemHolderInfo
	post  *ItemHolderInfo
	seq   uint64
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger skipped records are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Store accumulates per-holder layout information for one pass. It is not
// safe for concurrent use.
type Store[H comparable] struct {
	logger *slog.Logger

	records    map[H]*infoRecord
	oldChanged map[int64]H
	nextSeq    uint64

	free []*infoRecord
}

// NewStore returns an empty store.
func NewStore[H comparable](opts ...Option) *Store[H] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store[H]{
		logger:     observability.LoggerOrDefault(o.logger),
		records:    make(map[H]*infoRecord),
		oldChanged: make(map[int64]H),
		free:       make([]*infoRecord, 0, PoolSize),
	}
}

// Clear forgets every holder.
func (s *Store[H]) Clear() {
	clear(s.records)
	clear(s.oldChanged)
}

// AddToPreLayout records holder's bounds before layout.
func (s *Store[H]) AddToPreLayout(holder H, info *ItemHolderInfo) {
	record := s.recordFor(holder)
	record.pre = info
	record.flags |= FlagPre
}

// IsDisappearing reports whether holder was marked disappeared in layout.
func (s *Store[H]) IsDisappearing(holder H) bool {
	record, ok := s.records[holder]

	return ok && record.flags&FlagDisappeared != 0
}

// PopFromPreLayout removes and returns holder's pre-layout info, or nil.
func (s *Store[H]) PopFromPreLayout(holder H) *ItemHolderInfo {
	return s.popFromLayoutStep(holder, FlagPre)
}

// PopFromPostLayout removes and returns holder's post-layout info, or nil.
func (s *Store[H]) PopFromPostLayout(holder H) *ItemHolderInfo {
	return s.popFromLayoutStep(holder, FlagPost)
}

func (s *Store[H]) popFromLayoutStep(holder H, flag int) *ItemHolderInfo {
	record, ok := s.records[holder]
	if !ok || record.flags&flag == 0 {
		return nil
	}

	record.flags &^= flag

	info := record.pre
	if flag == FlagPost {
		info = record.post
	}

	// Nothing left to animate once both steps are gone.
	if record.flags&FlagPreAndPost == 0 {
		delete(s.records, holder)
		s.release(record)
	}

	return info
}

// AddToOldChangeHolders remembers holder as the old holder of a change keyed
// by key.
func (s *Store[H]) AddToOldChangeHolders(key int64, holder H) {
	s.oldChanged[key] = holder
}

// FromOldChangeHolders returns the old holder recorded for key.
func (s *Store[H]) FromOldChangeHolders(key int64) (H, bool) {
	holder, ok := s.oldChanged[key]

	return holder, ok
}

// AddToAppearedInPreLayoutHolders records holder as appearing during the
// pre-layout pass, with its bounds at that point.
func (s *Store[H]) AddToAppearedInPreLayoutHolders(holder H, info *ItemHolderInfo) {
	record := s.recordFor(holder)
	record.flags |= FlagAppear
	record.pre = info
}

// IsInPreLayout reports whether holder has pre-layout info.
func (s *Store[H]) IsInPreLayout(holder H) bool {
	record, ok := s.records[holder]

	return ok && record.flags&FlagPre != 0
}

// AddToPostLayout records holder's bounds after layout.
func (s *Store[H]) AddToPostLayout(holder H, info *ItemHolderInfo) {
	record := s.recordFor(holder)
	record.post = info
	record.flags |= FlagPost
}

// AddToDisappearedInLayout marks holder as disappearing during layout.
func (s *Store[H]) AddToDisappearedInLayout(holder H) {
	s.recordFor(holder).flags |= FlagDisappeared
}

// RemoveFromDisappearedInLayout clears the disappearing mark of holder.
func (s *Store[H]) RemoveFromDisappearedInLayout(holder H) {
	record, ok := s.records[holder]
	if !ok {
		return
	}

	record.flags &^= FlagDisappeared
}

// OnViewDetached is called when holder's view leaves the window.
func (s *Store[H]) OnViewDetached(holder H) {
	s.RemoveFromDisappearedInLayout(holder)
}

// RemoveViewHolder forgets holder entirely.
func (s *Store[H]) RemoveViewHolder(holder H) {
	maps.DeleteFunc(s.oldChanged, func(_ int64, h H) bool { return h == holder })

	record, ok := s.records[holder]
	if !ok {
		return
	}

	delete(s.records, holder)
	s.release(record)
}

// OnDetach drops the records kept for reuse.
func (s *Store[H]) OnDetach() {
	clear(s.free)
	s.free = s.free[:0]
}

// Len returns the number of tracked holders.
func (s *Store[H]) Len() int { return len(s.records) }

// Process classifies every tracked holder exactly once, in the order they
// were first recorded, and empties the store of them. A record whose
// callback panics is logged and skipped.
func (s *Store[H]) Process(cb ProcessCallback[H]) {
	holders := slices.SortedFunc(maps.Keys(s.records), func(a, b H) int {
		return cmp.Compare(s.records[a].seq, s.records[b].seq)
	})

	for _, holder := range holders {
		// An earlier callback may have removed this holder.
		record, ok := s.records[holder]
		if !ok {
			continue
		}

		delete(s.records, holder)

		if s.processRecord(cb, holder, record) {
			s.release(record)
		}
	}
}

func (s *Store[H]) processRecord(cb ProcessCallback[H], holder H, record *infoRecord) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("view info record skipped", "holder", holder, "flags", record.flags, "panic", r)

			ok = false
		}
	}()

	classify(cb, holder, record)

	return true
}

func classify[H comparable](cb ProcessCallback[H], holder H, record *infoRecord) {
	flags := record.flags

	switch {
	case flags&FlagAppearAndDisappear == FlagAppearAndDisappear:
		// Appeared and disappeared in the same pass: nothing to animate.
		cb.Unused(holder)
	case flags&FlagDisappeared != 0:
		if record.pre == nil {
			cb.Unused(holder)
		} else {
			cb.ProcessDisappeared(holder, record.pre, record.post)
		}
	case flags&FlagAppearPreAndPost == FlagAppearPreAndPost:
		cb.ProcessAppeared(holder, record.pre, record.post)
	case flags&FlagPreAndPost == FlagPreAndPost:
		cb.ProcessPersistent(holder, record.pre, record.post)
	case flags&FlagPre != 0:
		cb.ProcessDisappeared(holder, record.pre, nil)
	case flags&FlagPost != 0:
		cb.ProcessAppeared(holder, record.pre, record.post)
	case flags&FlagAppear != 0:
		// A scrapped view; the layout manager recycles it.
	}
}

func (s *Store[H]) recordFor(holder H) *infoRecord {
	record, ok := s.records[holder]
	if ok {
		return record
	}

	record = s.obtain()
	record.seq = s.nextSeq
	s.nextSeq++
	s.records[holder] = record

	return record
}

func (s *Store[H]) obtain() *infoRecord {
	if n := len(s.free); n > 0 {
		record := s.free[n-1]
		s.free[n-1] = nil
		s.free = s.free[:n-1]

		return record
	}

	return &infoRecord{}
}

func (s *Store[H]) release(record *infoRecord) {
	*record = infoRecord{}

	if len(s.free) < PoolSize {
		s.free = append(s.free, record)
	}
}
