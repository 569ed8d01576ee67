// Package walletsnapshots persists rendered wallet views in a write-ahead log.
package walletsnapshots

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/walletview/internal/domain"
)

const (
	defaultSnapshotDir   = "./wal/wallet"
	snapshotSegmentLimit = 1000
	snapshotMaxSegments  = 100
	viewKeyPrefix        = "wallet_view_"
)

var errNotInitialized = errors.New("wallet snapshot store is not initialized")

// WALStore keeps wallet views so that dashboards can replay and stream them.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed store under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultSnapshotDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "wallet_",
		SegmentThreshold: snapshotSegmentLimit,
		MaxSegments:      snapshotMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init wallet snapshot WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the view and returns its WAL index.
func (s *WALStore) Save(view domain.WalletView) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errNotInitialized
	}

	payload, err := json.Marshal(view)
	if err != nil {
		return 0, errors.Wrap(err, "marshal wallet view")
	}

	key := viewKeyPrefix + view.ID.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return 0, errors.Wrap(err, "write wallet view")
	}

	return nextIndex, nil
}

// ViewsAfter returns all views written after the provided WAL index.
func (s *WALStore) ViewsAfter(index uint64) ([]domain.WalletViewRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.WalletViewRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, ok := s.wal.Get(idx)
		if !ok || !strings.HasPrefix(key, viewKeyPrefix) {
			continue
		}
		var view domain.WalletView
		if err := json.Unmarshal(payload, &view); err != nil {
			return nil, errors.Wrap(err, "decode wallet view")
		}
		records = append(records, domain.WalletViewRecord{Index: idx, View: view})
	}

	return records, nil
}

// Latest returns the most recent view, if any.
func (s *WALStore) Latest() (domain.WalletViewRecord, bool, error) {
	if s == nil || s.wal == nil {
		return domain.WalletViewRecord{}, false, errNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for idx := s.wal.CurrentIndex(); idx > 0; idx-- {
		key, payload, ok := s.wal.Get(idx)
		if !ok {
			// older segments may have been rotated away
			break
		}
		if !strings.HasPrefix(key, viewKeyPrefix) {
			continue
		}
		var view domain.WalletView
		if err := json.Unmarshal(payload, &view); err != nil {
			return domain.WalletViewRecord{}, false, errors.Wrap(err, "decode wallet view")
		}
		return domain.WalletViewRecord{Index: idx, View: view}, true, nil
	}

	return domain.WalletViewRecord{}, false, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
