package logging

import (
	"sync"
	"sync/atomic"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
	"go.uber.org/zap"
)

// #region journal
// DefaultJournalBuffer is the number of entries queued before Submit drops.
const DefaultJournalBuffer = 256

// Journal writes entries to a Store on a single background goroutine, in
// submission order. Submit never blocks: a full buffer drops the entry.
// A snapshot or event that references a version whose write failed is
// relinked to the last version actually written, so one failure does not
// orphan the rest of the lineage.
type Journal struct {
	store   *state.Store
	logger  *zap.Logger
	entries chan Entry
	quit    chan struct{}
	done    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	written   atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64

	// Owned by the writer goroutine.
	committed string // last snapshot version written
	lost      string // last snapshot version whose write failed
}

// NewJournal creates a journal over store. buffer < 1 uses DefaultJournalBuffer.
func NewJournal(store *state.Store, logger *zap.Logger, buffer int) *Journal {
	if buffer < 1 {
		buffer = DefaultJournalBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{
		store:   store,
		logger:  logger.Named("journal"),
		entries: make(chan Entry, buffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}
// #endregion journal

// #region lifecycle
// Start launches the writer goroutine.
func (j *Journal) Start() {
	j.startOnce.Do(func() {
		j.started.Store(true)
		go j.run()
	})
}

// Stop signals the writer, waits for it to drain queued entries and exit.
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		close(j.quit)
		if j.started.Load() {
			<-j.done
		}
	})
}
// #endregion lifecycle

// #region submit
// Submit queues e for writing. Returns false if the entry was dropped.
func (j *Journal) Submit(e Entry) bool {
	select {
	case <-j.quit:
		j.dropped.Add(1)
		return false
	default:
	}
	select {
	case j.entries <- e:
		return true
	default:
		j.dropped.Add(1)
		j.logger.Warn("journal buffer full, dropping entry", zap.Int("buffer", cap(j.entries)))
		return false
	}
}

// Written returns the number of entries persisted.
func (j *Journal) Written() int64 { return j.written.Load() }

// Dropped returns the number of entries discarded.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Failed returns the number of entries whose write returned an error.
func (j *Journal) Failed() int64 { return j.failed.Load() }
// #endregion submit

// #region run
func (j *Journal) run() {
	defer close(j.done)
	for {
		select {
		case e := <-j.entries:
			j.write(e)
		case <-j.quit:
			for {
				select {
				case e := <-j.entries:
					j.write(e)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) write(e Entry) {
	if e.Snapshot != nil {
		rec := *e.Snapshot
		if rec.ParentID != "" && rec.ParentID == j.lost {
			rec.ParentID = j.committed
		}
		if err := j.store.CommitSnapshot(rec); err != nil {
			j.failed.Add(1)
			j.lost = rec.VersionID
			j.logger.Warn("journal snapshot failed", zap.String("version_id", rec.VersionID), zap.Error(err))
			return
		}
		j.committed = rec.VersionID
	}
	if e.Event != nil {
		ev := *e.Event
		switch {
		case ev.VersionID == "" && e.Snapshot != nil:
			ev.VersionID = e.Snapshot.VersionID
		case ev.VersionID != "" && ev.VersionID == j.lost:
			ev.VersionID = j.committed
		}
		if err := LogEvent(j.store.DB(), ev); err != nil {
			j.failed.Add(1)
			j.logger.Warn("journal event failed", zap.String("event_type", ev.EventType), zap.Error(err))
			return
		}
	}
	j.written.Add(1)
}
// #endregion run
