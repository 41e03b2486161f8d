// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	profileKeyPrefix     = "profile:"
	profileUserKeyPrefix = "profile_user:"
	monitoringKeyPrefix  = "monitoring:"
	alertKeyPrefix       = "alert:"
	alertUserKeyPrefix   = "alert_user:"
	actionKeyPrefix      = "action:"
)

// BadgerConfig configures the badger backend.
type BadgerConfig struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in memory.
	InMemory bool
}

// Badger is a Store backed by BadgerDB. Records are JSON values under
// prefixed keys; per-user lookups go through index keys whose value is the
// record id.
type Badger struct {
	db      *badger.DB
	records *KeyedMutex
}

// OpenBadger opens (or creates) a badger database.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("store: badger path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{}).WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadger(db), nil
}

// NewBadger wraps an already open database.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db, records: NewKeyedMutex()}
}

// Close implements Store.
func (s *Badger) Close() error {
	return s.db.Close()
}

// getJSON loads key into v, returning notFound when it is missing.
func getJSON(txn *badger.Txn, key string, v interface{}, notFound error) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return models.NewInternalError("badger get", err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateProfile implements ProfileStore.
func (s *Badger) CreateProfile(_ context.Context, p *models.Profile) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range []string{profileKeyPrefix + p.ID, profileUserKeyPrefix + p.UserID} {
			found, err := exists(txn, key)
			if err != nil {
				return err
			}
			if found {
				return ErrAlreadyExists
			}
		}
		if err := setJSON(txn, profileKeyPrefix+p.ID, p); err != nil {
			return err
		}
		return txn.Set([]byte(profileUserKeyPrefix+p.UserID), []byte(p.ID))
	})
}

// GetProfile implements ProfileStore.
func (s *Badger) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, profileKeyPrefix+id, &p, profileNotFound(id))
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByUser implements ProfileStore.
func (s *Badger) GetProfileByUser(_ context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileUserKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return profileNotFound(userID)
		}
		if err != nil {
			return models.NewInternalError("badger get", err)
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, profileKeyPrefix+string(id), &p, profileNotFound(userID))
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile implements ProfileStore.
func (s *Badger) UpdateProfile(_ context.Context, id string, fn func(*models.Profile) error) (*models.Profile, error) {
	unlock := s.records.Lock(profileKeyPrefix + id)
	defer unlock()

	var p models.Profile
	err := s.update(func(txn *badger.Txn) error {
		p = models.Profile{}
		if err := getJSON(txn, profileKeyPrefix+id, &p, profileNotFound(id)); err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		p.ID = id
		return setJSON(txn, profileKeyPrefix+id, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateMonitoring implements MonitoringStore.
func (s *Badger) CreateMonitoring(_ context.Context, m *models.Monitoring) error {
	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, monitoringKeyPrefix+m.ID)
		if err != nil {
			return err
		}
		if found {
			return ErrAlreadyExists
		}
		return setJSON(txn, monitoringKeyPrefix+m.ID, m)
	})
}

// GetMonitoring implements MonitoringStore.
func (s *Badger) GetMonitoring(_ context.Context, id string) (*models.Monitoring, error) {
	var m models.Monitoring
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, monitoringKeyPrefix+id, &m, monitoringNotFound(id))
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMonitoring implements MonitoringStore.
func (s *Badger) UpdateMonitoring(_ context.Context, id string, fn func(*models.Monitoring) error) (*models.Monitoring, error) {
	unlock := s.records.Lock(monitoringKeyPrefix + id)
	defer unlock()

	var m models.Monitoring
	err := s.update(func(txn *badger.Txn) error {
		m = models.Monitoring{}
		if err := getJSON(txn, monitoringKeyPrefix+id, &m, monitoringNotFound(id)); err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		m.ID = id
		return setJSON(txn, monitoringKeyPrefix+id, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteEndedMonitoringBefore implements MonitoringStore.
func (s *Badger) DeleteEndedMonitoringBefore(_ context.Context, cutoff time.Time) (int, error) {
	var keys [][]byte
	err := s.scan(monitoringKeyPrefix, func(key, val []byte) error {
		var m models.Monitoring
		if err := json.Unmarshal(val, &m); err != nil {
			return nil //nolint:nilerr // skip unreadable records
		}
		if !m.Active && m.EndTime != nil && m.EndTime.Before(cutoff) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan monitoring: %w", err)
	}
	return s.deleteKeys(keys)
}

// CreateAlert implements AlertStore.
func (s *Badger) CreateAlert(_ context.Context, a *models.Alert) error {
	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, alertKeyPrefix+a.ID)
		if err != nil {
			return err
		}
		if found {
			return ErrAlreadyExists
		}
		if err := setJSON(txn, alertKeyPrefix+a.ID, a); err != nil {
			return err
		}
		return txn.Set([]byte(alertUserKeyPrefix+a.UserID+":"+a.ID), []byte(a.ID))
	})
}

// GetAlert implements AlertStore.
func (s *Badger) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	var a models.Alert
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, alertKeyPrefix+id, &a, alertNotFound(id))
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAlert implements AlertStore.
func (s *Badger) UpdateAlert(_ context.Context, id string, fn func(*models.Alert) error) (*models.Alert, error) {
	unlock := s.records.Lock(alertKeyPrefix + id)
	defer unlock()

	var a models.Alert
	err := s.update(func(txn *badger.Txn) error {
		a = models.Alert{}
		if err := getJSON(txn, alertKeyPrefix+id, &a, alertNotFound(id)); err != nil {
			return err
		}
		if err := fn(&a); err != nil {
			return err
		}
		a.ID = id
		return setJSON(txn, alertKeyPrefix+id, &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAlertsByUser implements AlertStore.
func (s *Badger) ListAlertsByUser(_ context.Context, userID string) ([]*models.Alert, error) {
	var alerts []*models.Alert

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(alertUserKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var a models.Alert
			err = getJSON(txn, alertKeyPrefix+string(id), &a, nil)
			if err != nil {
				return err
			}
			if a.ID == "" {
				continue // index entry left behind by retention
			}
			alerts = append(alerts, &a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list user alerts: %w", err)
	}

	sortAlertsNewestFirst(alerts)
	return alerts, nil
}

// DeleteTerminalAlertsBefore implements AlertStore. The per-user index
// entry is removed with the record.
func (s *Badger) DeleteTerminalAlertsBefore(_ context.Context, cutoff time.Time) (int, error) {
	var keys [][]byte
	err := s.scan(alertKeyPrefix, func(key, val []byte) error {
		var a models.Alert
		if err := json.Unmarshal(val, &a); err != nil {
			return nil //nolint:nilerr // skip unreadable records
		}
		if a.IsTerminal() && a.UpdatedAt.Before(cutoff) {
			keys = append(keys, key, []byte(alertUserKeyPrefix+a.UserID+":"+a.ID))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan alerts: %w", err)
	}
	n, err := s.deleteKeys(keys)
	return n / 2, err
}

// AppendActionLog implements ActionLogStore. Keys sort by subject, then
// timestamp.
func (s *Badger) AppendActionLog(_ context.Context, entry *models.ActionLog) error {
	key := fmt.Sprintf("%s%s:%020d:%s", actionKeyPrefix, actionLogSubject(entry), entry.Timestamp.UnixNano(), entry.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, entry)
	})
}

// ListActionLogs implements ActionLogStore.
func (s *Badger) ListActionLogs(_ context.Context, alertID string) ([]*models.ActionLog, error) {
	var out []*models.ActionLog
	err := s.scan(actionKeyPrefix+alertID+":", func(_, val []byte) error {
		var e models.ActionLog
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		out = append(out, &e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list action logs: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// DeleteActionLogsBefore implements ActionLogStore.
func (s *Badger) DeleteActionLogsBefore(_ context.Context, cutoff time.Time) (int, error) {
	var keys [][]byte
	err := s.scan(actionKeyPrefix, func(key, val []byte) error {
		var e models.ActionLog
		if err := json.Unmarshal(val, &e); err != nil {
			return nil //nolint:nilerr // skip unreadable records
		}
		if e.Timestamp.Before(cutoff) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan action logs: %w", err)
	}
	return s.deleteKeys(keys)
}

// update runs fn in a read-write transaction, retrying when a concurrent
// retention delete invalidates the read set.
func (s *Badger) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// scan calls fn with a copy of every key and value under prefix.
func (s *Badger) scan(prefix string, fn func(key, val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// deleteKeys removes keys in batches through a WriteBatch.
func (s *Badger) deleteKeys(keys [][]byte) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush deletes: %w", err)
	}
	return len(keys), nil
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Info().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}
