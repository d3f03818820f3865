package strikes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"strike-warden/internal/storage"
)

// DatasetName is the storage dataset holding every strike.
const DatasetName = "strikes"

const datasetLockKey = "dataset:" + DatasetName

var ErrNotFound = errors.New("strike not found")

// Ledger is the append-only strike store. Records are never deleted; expiry
// is applied when reading.
type Ledger struct {
	store  storage.Backend
	locker Locker
	expiry time.Duration
}

func NewLedger(store storage.Backend, locker Locker, expiry time.Duration) *Ledger {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Ledger{store: store, locker: locker, expiry: expiry}
}

func (l *Ledger) Expiry() time.Duration {
	return l.expiry
}

func (l *Ledger) load(ctx context.Context) ([]Strike, error) {
	return storage.LoadDataset[Strike](ctx, l.store, DatasetName)
}

// Update runs fn with the user's active strikes while holding the user's
// lock, so decisions for one user never interleave.
func (l *Ledger) Update(ctx context.Context, userID string, now time.Time, fn func(active []Strike) error) error {
	unlock, err := l.locker.Lock(ctx, "user:"+userID)
	if err != nil {
		return err
	}
	defer unlock()

	active, err := l.Active(ctx, userID, now)
	if err != nil {
		return err
	}
	return fn(active)
}

func (l *Ledger) Append(ctx context.Context, strike Strike) error {
	return l.modify(ctx, func(all []Strike) ([]Strike, error) {
		return append(all, strike), nil
	})
}

// Active returns the user's strikes that are neither removed nor expired,
// oldest first.
func (l *Ledger) Active(ctx context.Context, userID string, now time.Time) ([]Strike, error) {
	all, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	var active []Strike
	for _, strike := range all {
		if strike.UserID == userID && !strike.Removed && strike.ExpiresAt(l.expiry).After(now) {
			active = append(active, strike)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Date.Before(active[j].Date) })
	return active, nil
}

// All returns every strike of the user, newest first.
func (l *Ledger) All(ctx context.Context, userID string) ([]Strike, error) {
	all, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	var mine []Strike
	for _, strike := range all {
		if strike.UserID == userID {
			mine = append(mine, strike)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].Date.After(mine[j].Date) })
	return mine, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (Strike, error) {
	all, err := l.load(ctx)
	if err != nil {
		return Strike{}, err
	}
	for _, strike := range all {
		if strike.ID == id {
			return strike, nil
		}
	}
	return Strike{}, ErrNotFound
}

// MarkRemoved soft-deletes a strike. changed is false when it was already removed.
func (l *Ledger) MarkRemoved(ctx context.Context, id string) (strike Strike, changed bool, err error) {
	return l.setRemoved(ctx, id, true)
}

// MarkRestored undoes MarkRemoved. changed is false when it was not removed.
func (l *Ledger) MarkRestored(ctx context.Context, id string) (strike Strike, changed bool, err error) {
	return l.setRemoved(ctx, id, false)
}

func (l *Ledger) setRemoved(ctx context.Context, id string, removed bool) (Strike, bool, error) {
	var found Strike
	var changed bool
	err := l.modify(ctx, func(all []Strike) ([]Strike, error) {
		for i := range all {
			if all[i].ID != id {
				continue
			}
			changed = all[i].Removed != removed
			all[i].Removed = removed
			found = all[i]
			if !changed {
				return nil, nil
			}
			return all, nil
		}
		return nil, ErrNotFound
	})
	return found, changed, err
}

// modify performs a locked read-modify-write of the whole dataset. fn
// returning a nil slice skips the write.
func (l *Ledger) modify(ctx context.Context, fn func([]Strike) ([]Strike, error)) error {
	unlock, err := l.locker.Lock(ctx, datasetLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	all, err := l.load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(all)
	if err != nil {
		return err
	}
	if updated == nil {
		return nil
	}
	if err := storage.SaveDataset(ctx, l.store, DatasetName, updated); err != nil {
		return fmt.Errorf("save strikes: %w", err)
	}
	return nil
}
