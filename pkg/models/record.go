package models

import "sort"

// AccountKey identifies an account inside one document, usually the last digits
// of the account number.
type AccountKey string

// AccountRecord carries every field slot of one account.
type AccountRecord struct {
	Key                AccountKey    `json:"account" yaml:"account"`
	StatementDate      Slot[string]  `json:"statement_date" yaml:"statement_date"`
	PriorPeriodValue   Slot[float64] `json:"prior_period_value" yaml:"prior_period_value"`
	CurrentPeriodValue Slot[float64] `json:"current_period_value" yaml:"current_period_value"`
	ShortTermGain      Slot[float64] `json:"short_term_gain" yaml:"short_term_gain"`
	ShortTermGainYTD   Slot[float64] `json:"short_term_gain_ytd" yaml:"short_term_gain_ytd"`
	LongTermGain       Slot[float64] `json:"long_term_gain" yaml:"long_term_gain"`
	LongTermGainYTD    Slot[float64] `json:"long_term_gain_ytd" yaml:"long_term_gain_ytd"`
}

// NewAccountRecord returns a record with every slot unset.
func NewAccountRecord(key AccountKey) *AccountRecord {
	return &AccountRecord{Key: key}
}

func (r *AccountRecord) number(slot FieldSlot) *Slot[float64] {
	switch slot {
	case PriorPeriodValue:
		return &r.PriorPeriodValue
	case CurrentPeriodValue:
		return &r.CurrentPeriodValue
	case ShortTermGain:
		return &r.ShortTermGain
	case ShortTermGainYTD:
		return &r.ShortTermGainYTD
	case LongTermGain:
		return &r.LongTermGain
	case LongTermGainYTD:
		return &r.LongTermGainYTD
	}
	return nil
}

// IsSet reports whether slot already holds a value.
func (r *AccountRecord) IsSet(slot FieldSlot) bool {
	if slot == StatementDate {
		return r.StatementDate.IsSet()
	}
	if s := r.number(slot); s != nil {
		return s.IsSet()
	}
	return false
}

// Set writes v into slot unless the slot is already set or v has the wrong kind.
// It reports whether the record changed.
func (r *AccountRecord) Set(slot FieldSlot, v Value) bool {
	if r.IsSet(slot) {
		return false
	}
	if slot == StatementDate {
		d, ok := v.DateString()
		if !ok {
			return false
		}
		r.StatementDate = Set(d)
		return true
	}
	s := r.number(slot)
	f, ok := v.Float()
	if s == nil || !ok {
		return false
	}
	*s = Set(f)
	return true
}

// Count returns how many slots are set.
func (r *AccountRecord) Count() int {
	n := 0
	for _, slot := range FieldSlots {
		if r.IsSet(slot) {
			n++
		}
	}
	return n
}

// Column renders one slot for tabular output, empty when unset.
func (r *AccountRecord) Column(slot FieldSlot) string {
	if slot == StatementDate {
		return r.StatementDate.Or("")
	}
	if s := r.number(slot); s != nil {
		if f, ok := s.Get(); ok {
			return Number(f).String()
		}
	}
	return ""
}

// Result is the finalized extraction of one document.
type Result struct {
	Document string                       `json:"document" yaml:"document"`
	Dialect  string                       `json:"dialect,omitempty" yaml:"dialect,omitempty"`
	Accounts map[AccountKey]AccountRecord `json:"accounts" yaml:"accounts"`
}

// Keys returns the account keys in sorted order.
func (r Result) Keys() []AccountKey {
	keys := make([]AccountKey, 0, len(r.Accounts))
	for k := range r.Accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Records returns the records in key order.
func (r Result) Records() []AccountRecord {
	out := make([]AccountRecord, 0, len(r.Accounts))
	for _, k := range r.Keys() {
		out = append(out, r.Accounts[k])
	}
	return out
}

// IsEmpty reports whether no account was found.
func (r Result) IsEmpty() bool {
	return len(r.Accounts) == 0
}
