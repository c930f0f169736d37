package models

import "fmt"

// FieldSlot names one extractable datum on an account record.
type FieldSlot int

const (
	StatementDate FieldSlot = iota
	PriorPeriodValue
	CurrentPeriodValue
	ShortTermGain
	ShortTermGainYTD
	LongTermGain
	LongTermGainYTD
)

// FieldSlots lists every slot in record order.
var FieldSlots = []FieldSlot{
	StatementDate,
	PriorPeriodValue,
	CurrentPeriodValue,
	ShortTermGain,
	ShortTermGainYTD,
	LongTermGain,
	LongTermGainYTD,
}

var slotNames = map[FieldSlot]string{
	StatementDate:      "statement_date",
	PriorPeriodValue:   "prior_period_value",
	CurrentPeriodValue: "current_period_value",
	ShortTermGain:      "short_term_gain",
	ShortTermGainYTD:   "short_term_gain_ytd",
	LongTermGain:       "long_term_gain",
	LongTermGainYTD:    "long_term_gain_ytd",
}

func (s FieldSlot) String() string {
	if name, ok := slotNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FieldSlot(%d)", int(s))
}

// ParseFieldSlot resolves a snake_case slot name.
func ParseFieldSlot(name string) (FieldSlot, error) {
	for slot, n := range slotNames {
		if n == name {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("unknown field slot %q", name)
}
