// Package registry keeps the per-document map of account records built while
// scanning.
package registry

import "github.com/yurifrl/brokerfacts/pkg/models"

// Registry maps account keys to records for a single document pass. It is not
// safe for concurrent use; each document gets its own.
type Registry struct {
	records map[models.AccountKey]*models.AccountRecord
	order   []models.AccountKey
}

func New() *Registry {
	return &Registry{records: map[models.AccountKey]*models.AccountRecord{}}
}

// CreateIfAbsent returns the record for key, creating an empty one on first use.
func (r *Registry) CreateIfAbsent(key models.AccountKey) *models.AccountRecord {
	if rec, ok := r.records[key]; ok {
		return rec
	}
	rec := models.NewAccountRecord(key)
	r.records[key] = rec
	r.order = append(r.order, key)
	return rec
}

// SetSlot writes v into the key's slot if it is still unset. It reports whether
// the value was stored.
func (r *Registry) SetSlot(key models.AccountKey, slot models.FieldSlot, v models.Value) bool {
	return r.CreateIfAbsent(key).Set(slot, v)
}

func (r *Registry) Lookup(key models.AccountKey) (*models.AccountRecord, bool) {
	rec, ok := r.records[key]
	return rec, ok
}

func (r *Registry) Len() int {
	return len(r.records)
}

// Keys returns account keys in discovery order.
func (r *Registry) Keys() []models.AccountKey {
	return append([]models.AccountKey(nil), r.order...)
}

// Finalize back-fills date onto every record without a statement date and
// returns copies of all records. Later mutation of the registry does not leak
// into the returned map.
func (r *Registry) Finalize(date models.Slot[string]) map[models.AccountKey]models.AccountRecord {
	out := make(map[models.AccountKey]models.AccountRecord, len(r.records))
	d, hasDate := date.Get()
	for key, rec := range r.records {
		cp := *rec
		if hasDate && !cp.StatementDate.IsSet() {
			cp.StatementDate = models.Set(d)
		}
		out[key] = cp
	}
	return out
}
