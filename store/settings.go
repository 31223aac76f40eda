package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"GiftFM/logger"
	"GiftFM/model"

	"github.com/dgraph-io/badger/v4"
)

const (
	mappingPrefix   = "mapping:"
	globalVolumeKey = "settings:global_volume"
)

// SettingsStore persists gift→audio mappings and playback settings in a
// local badger key-value store. Persistence is best effort; the pipeline
// never blocks on it.
type SettingsStore struct {
	db *badger.DB
}

// Open opens (or creates) the settings store under dir.
func Open(dir string) (*SettingsStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	return &SettingsStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SettingsStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetMapping returns the mapping for giftID, or nil when none exists.
// Legacy single-path mappings are normalized (and rewritten) on read.
func (s *SettingsStore) GetMapping(giftID string) (*model.GiftAudioMapping, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(mappingPrefix + giftID))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping %s: %w", giftID, err)
	}

	var m model.GiftAudioMapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("corrupt mapping %s: %w", giftID, err)
	}
	if m.Normalize() {
		// 迁移旧格式：单路径映射转为单元素播放列表
		if err := s.SetMapping(&m); err != nil {
			logger.Warn("failed to persist normalized mapping",
				logger.String("giftId", giftID), logger.ErrorField(err))
		}
	}
	return &m, nil
}

// SetMapping creates or replaces the mapping for its gift. The write path
// does not validate that referenced audio files still exist.
func (s *SettingsStore) SetMapping(m *model.GiftAudioMapping) error {
	if m.GiftID == "" {
		return errors.New("mapping requires a gift id")
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(mappingPrefix+m.GiftID), raw)
	})
}

// DeleteMapping removes the mapping for giftID. Deleting a missing mapping
// is not an error.
func (s *SettingsStore) DeleteMapping(giftID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(mappingPrefix + giftID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// ListMappings returns all stored mappings, normalized.
func (s *SettingsStore) ListMappings() ([]*model.GiftAudioMapping, error) {
	var result []*model.GiftAudioMapping
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(mappingPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var m model.GiftAudioMapping
			if err := json.Unmarshal(raw, &m); err != nil {
				logger.Warn("skipping corrupt mapping entry", logger.ErrorField(err))
				continue
			}
			m.Normalize()
			result = append(result, &m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	return result, nil
}

// PruneAudioPath drops every playlist entry referencing path from all
// mappings. Mappings are kept even when their playlist becomes empty.
func (s *SettingsStore) PruneAudioPath(path string) error {
	mappings, err := s.ListMappings()
	if err != nil {
		return err
	}
	for _, m := range mappings {
		kept := m.AudioFiles[:0]
		for _, e := range m.AudioFiles {
			if e.Path != path {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(m.AudioFiles) {
			continue
		}
		m.AudioFiles = kept
		if err := s.SetMapping(m); err != nil {
			return err
		}
		logger.Info("pruned deleted audio from mapping",
			logger.String("giftId", m.GiftID), logger.String("path", path))
	}
	return nil
}

// GlobalVolume returns the stored global volume, defaulting to 1.0.
func (s *SettingsStore) GlobalVolume() float64 {
	vol := 1.0
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(globalVolumeKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := strconv.ParseFloat(string(val), 64)
			if err != nil {
				return err
			}
			vol = parsed
			return nil
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		logger.Warn("failed to read global volume", logger.ErrorField(err))
	}
	return vol
}

// SetGlobalVolume stores the global volume.
func (s *SettingsStore) SetGlobalVolume(vol float64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(globalVolumeKey), []byte(strconv.FormatFloat(vol, 'f', -1, 64)))
	})
}
