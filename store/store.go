// Package store implements the durable record store: a pending,
// in-process-visible partition layered over a fsynced durable partition
// backed by cometbft-db.
package store

import (
	"encoding/json"
	"sync"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robolibs/blockit-sub001/blockiterr"
)

const (
	keyPrefixValidator = "v:"
	keySchemaMeta      = "meta:schema_version"
	schemaVersion      = "1"
)

// ValidatorRecord is the persisted shape of a consensus.Validator.
type ValidatorRecord struct {
	ValidatorID   string `json:"validator_id"`
	ParticipantID string `json:"participant_id"`
	IdentityData  []byte `json:"identity_data"`
	Weight        uint32 `json:"weight"`
	Status        uint8  `json:"status"`
	LastSeenMs    int64  `json:"last_seen_ms"`
	CreatedAt     int64  `json:"created_at"`
}

// Store holds committed records durably (via db, fsynced) and staged,
// uncommitted records in memory (visible in-process, discarded on
// restart without a commit).
type Store struct {
	mu      sync.RWMutex
	db      dbm.DB
	pending map[string][]byte
	metrics *Metrics
}

// Open opens (or creates) a GoLevelDB-backed durable store rooted at dir.
func Open(dir string, registry *prometheus.Registry) (*Store, error) {
	db, err := dbm.NewGoLevelDB("blockit", dir)
	if err != nil {
		return nil, blockiterr.NotInitialized("failed to open durable store: " + err.Error())
	}
	return newStore(db, registry), nil
}

// OpenMem opens an in-memory durable store, useful for tests.
func OpenMem(registry *prometheus.Registry) *Store {
	return newStore(dbm.NewMemDB(), registry)
}

func newStore(db dbm.DB, registry *prometheus.Registry) *Store {
	return &Store{
		db:      db,
		pending: make(map[string][]byte),
		metrics: NewMetrics(registry),
	}
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return blockiterr.NotInitialized("failed to close durable store: " + err.Error())
	}
	return nil
}

// InitializeCoreSchema idempotently marks the durable store as
// initialized for this schema version.
func (s *Store) InitializeCoreSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.db.Get([]byte(keySchemaMeta))
	if err != nil {
		return blockiterr.NotInitialized(err.Error())
	}
	if existing != nil {
		return nil
	}
	if err := s.db.SetSync([]byte(keySchemaMeta), []byte(schemaVersion)); err != nil {
		return blockiterr.NotInitialized(err.Error())
	}
	return nil
}

// Txn guards a batch of staged writes, to be either committed to the
// durable partition or rolled back (discarded).
type Txn struct {
	store *Store
	done  bool
}

// BeginTransaction starts a new transaction guard over this store.
func (s *Store) BeginTransaction() *Txn {
	return &Txn{store: s}
}

// Commit flushes every currently staged (pending) record to the durable
// partition in one fsynced batch, then clears the pending partition.
func (t *Txn) Commit() error {
	if t.done {
		return blockiterr.InvalidTransaction("transaction already finalized")
	}
	t.done = true
	s := t.store

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()
	for k, v := range s.pending {
		if err := batch.Set([]byte(k), v); err != nil {
			return blockiterr.SerializationFailed(err.Error())
		}
	}
	if err := batch.WriteSync(); err != nil {
		return blockiterr.SerializationFailed(err.Error())
	}
	s.pending = make(map[string][]byte)
	s.metrics.observeCommit(time.Since(start))
	return nil
}

// Rollback discards every currently staged (pending) record without
// touching the durable partition.
func (t *Txn) Rollback() error {
	if t.done {
		return blockiterr.InvalidTransaction("transaction already finalized")
	}
	t.done = true
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string][]byte)
	s.metrics.incRollback()
	return nil
}

func validatorKey(id string) string {
	return keyPrefixValidator + id
}

// StoreValidator stages a validator record in the pending partition. It
// is visible to LoadValidator/LoadAllValidators immediately, but only
// becomes durable once a Txn is committed.
func (s *Store) StoreValidator(rec ValidatorRecord) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return blockiterr.SerializationFailed(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[validatorKey(rec.ValidatorID)] = data
	return nil
}

// UpdateValidatorStatus updates a validator's status in the pending
// partition, starting from whatever copy (pending or durable) is
// currently visible.
func (s *Store) UpdateValidatorStatus(validatorID string, status uint8) error {
	rec, ok, err := s.LoadValidator(validatorID)
	if err != nil {
		return err
	}
	if !ok {
		return blockiterr.InvalidTransaction("validator " + validatorID + " not found")
	}
	rec.Status = status
	return s.StoreValidator(rec)
}

// LoadValidator returns a validator record, preferring the pending copy
// over the durable one if both exist.
func (s *Store) LoadValidator(validatorID string) (ValidatorRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := validatorKey(validatorID)
	if data, ok := s.pending[key]; ok {
		rec, err := decodeValidator(data)
		return rec, true, err
	}
	data, err := s.db.Get([]byte(key))
	if err != nil {
		return ValidatorRecord{}, false, blockiterr.DeserializationFailed(err.Error())
	}
	if data == nil {
		return ValidatorRecord{}, false, nil
	}
	rec, err := decodeValidator(data)
	return rec, true, err
}

// LoadAllValidators returns every validator record known to the store,
// merging the durable and pending partitions with pending taking
// precedence over durable for the same id.
func (s *Store) LoadAllValidators() ([]ValidatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := make(map[string]ValidatorRecord)

	iter, err := s.db.Iterator([]byte(keyPrefixValidator), dbm.PrefixEndBytes([]byte(keyPrefixValidator)))
	if err != nil {
		return nil, blockiterr.DeserializationFailed(err.Error())
	}
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		rec, err := decodeValidator(iter.Value())
		if err != nil {
			return nil, err
		}
		merged[rec.ValidatorID] = rec
	}

	for k, data := range s.pending {
		if len(k) < len(keyPrefixValidator) || k[:len(keyPrefixValidator)] != keyPrefixValidator {
			continue
		}
		rec, err := decodeValidator(data)
		if err != nil {
			return nil, err
		}
		merged[rec.ValidatorID] = rec
	}

	out := make([]ValidatorRecord, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	return out, nil
}

// GetValidatorCount returns the number of distinct validator records
// visible across the durable and pending partitions.
func (s *Store) GetValidatorCount() (int, error) {
	all, err := s.LoadAllValidators()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func decodeValidator(data []byte) (ValidatorRecord, error) {
	var rec ValidatorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ValidatorRecord{}, blockiterr.DeserializationFailed(err.Error())
	}
	return rec, nil
}
