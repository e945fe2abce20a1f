package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"mlm-project/db"
	"mlm-project/models"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

var (
	ErrNotFound        = errors.New("participant not found")
	ErrAlreadyExists   = errors.New("participant already exists")
	ErrVersionConflict = errors.New("participant version conflict")
)

const (
	participantPrefix = "participant:"
	lastIDKey         = "meta:last_participant_id"

	// how many records are decoded between context checks during a scan
	scanCheckInterval = 256
)

// Predicate selects participants in FindOne, FindAll and Count. A nil
// Predicate matches everything.
type Predicate func(p *models.Participant) bool

// All matches every participant.
func All() Predicate { return nil }

// Staked matches participants holding a positive stake.
func Staked() Predicate {
	return func(p *models.Participant) bool { return p.HasStaked() }
}

// It abstracts the storage layer from the business logic
type ParticipantRepositoryInterface interface {
	Create(ctx context.Context, p *models.Participant) error
	CreateReferral(ctx context.Context, p, sponsor *models.Participant) error
	Get(ctx context.Context, address string) (*models.Participant, error)
	FindOne(ctx context.Context, pred Predicate) (*models.Participant, error)
	FindAll(ctx context.Context, pred Predicate) ([]*models.Participant, error)
	Count(ctx context.Context, pred Predicate) (int64, error)
	Save(ctx context.Context, p *models.Participant) error
}

// ParticipantRepository implements ParticipantRepositoryInterface on LevelDB.
// Writes are serialised so id assignment and version checks are atomic.
type ParticipantRepository struct {
	db *db.LevelDB
	mu sync.Mutex
}

// NewParticipantRepository creates and returns a new ParticipantRepository instance
func NewParticipantRepository(db *db.LevelDB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func participantKey(address string) []byte {
	return []byte(participantPrefix + address)
}

// Create stores a new participant, assigning the next sequential id and
// version 1. The record and the id counter are written in one batch.
func (r *ParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := new(leveldb.Batch)
	stored, err := r.stageCreate(batch, p)
	if err != nil {
		return err
	}
	if err := r.db.Write(batch); err != nil {
		return err
	}

	p.ID = stored.ID
	p.Version = stored.Version
	return nil
}

// CreateReferral stores a new participant together with its updated sponsor
// in one batch, so the new record never exists without the sponsor change.
// sponsor.Version must match the stored sponsor, otherwise ErrVersionConflict
// is returned and nothing is written.
func (r *ParticipantRepository) CreateReferral(ctx context.Context, p, sponsor *models.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := new(leveldb.Batch)
	stored, err := r.stageCreate(batch, p)
	if err != nil {
		return err
	}
	storedSponsor, err := r.stageSave(ctx, batch, sponsor)
	if err != nil {
		return err
	}
	if err := r.db.Write(batch); err != nil {
		return err
	}

	p.ID = stored.ID
	p.Version = stored.Version
	sponsor.Version = storedSponsor.Version
	return nil
}

// stageCreate adds a new record and the bumped id counter to batch.
// Callers hold r.mu.
func (r *ParticipantRepository) stageCreate(batch *leveldb.Batch, p *models.Participant) (*models.Participant, error) {
	exists, err := r.db.Has(participantKey(p.WalletAddress))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, p.WalletAddress)
	}

	lastID, err := r.lastID()
	if err != nil {
		return nil, err
	}

	stored := p.Clone()
	stored.ID = lastID + 1
	stored.Version = 1
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}

	batch.Put(participantKey(stored.WalletAddress), data)
	batch.Put([]byte(lastIDKey), []byte(strconv.FormatInt(stored.ID, 10)))
	return stored, nil
}

// stageSave adds a version-checked overwrite of p to batch. Callers hold r.mu.
func (r *ParticipantRepository) stageSave(ctx context.Context, batch *leveldb.Batch, p *models.Participant) (*models.Participant, error) {
	current, err := r.Get(ctx, p.WalletAddress)
	if err != nil {
		return nil, err
	}
	if current.Version != p.Version {
		return nil, fmt.Errorf("%w: %s at version %d, stored %d",
			ErrVersionConflict, p.WalletAddress, p.Version, current.Version)
	}

	stored := p.Clone()
	stored.ID = current.ID
	stored.Version++
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	batch.Put(participantKey(p.WalletAddress), data)
	return stored, nil
}

func (r *ParticipantRepository) lastID() (int64, error) {
	raw, err := r.db.Get([]byte(lastIDKey))
	if db.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

// Get retrieves a participant by wallet address
func (r *ParticipantRepository) Get(ctx context.Context, address string) (*models.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.db.Get(participantKey(address))
	if db.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	if err != nil {
		return nil, err
	}
	var p models.Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindOne returns the lowest-id participant matching pred.
func (r *ParticipantRepository) FindOne(ctx context.Context, pred Predicate) (*models.Participant, error) {
	all, err := r.FindAll(ctx, pred)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

// FindAll reads matching participants from a single snapshot, ordered by
// ascending id. Concurrent writes during the scan are not observed.
func (r *ParticipantRepository) FindAll(ctx context.Context, pred Predicate) ([]*models.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := r.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	iter := snap.NewPrefixIterator([]byte(participantPrefix))
	defer iter.Release()

	var participants []*models.Participant
	err = scan(ctx, iter, func(p *models.Participant) {
		if pred == nil || pred(p) {
			participants = append(participants, p)
		}
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ID < participants[j].ID
	})
	return participants, nil
}

// Count returns the number of participants matching pred. With a nil
// predicate it reads the id counter, which equals the population size.
func (r *ParticipantRepository) Count(ctx context.Context, pred Predicate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if pred == nil {
		return r.lastID()
	}

	iter := r.db.NewPrefixIterator([]byte(participantPrefix))
	defer iter.Release()

	var n int64
	err := scan(ctx, iter, func(p *models.Participant) {
		if pred(p) {
			n++
		}
	})
	return n, err
}

// Save overwrites an existing participant. p.Version must match the stored
// version, otherwise ErrVersionConflict is returned and nothing is written.
// On success p.Version is incremented.
func (r *ParticipantRepository) Save(ctx context.Context, p *models.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := new(leveldb.Batch)
	stored, err := r.stageSave(ctx, batch, p)
	if err != nil {
		return err
	}
	if err := r.db.Write(batch); err != nil {
		return err
	}
	p.Version = stored.Version
	return nil
}

func scan(ctx context.Context, iter iterator.Iterator, visit func(*models.Participant)) error {
	n := 0
	for iter.Next() {
		n++
		if n%scanCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		var p models.Participant
		if err := json.Unmarshal(iter.Value(), &p); err != nil {
			return err
		}
		visit(&p)
	}
	return iter.Error()
}
