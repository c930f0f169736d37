package models

import "fmt"

// Value is a matched field value: a number, or a date rendered as YYYY-MM-DD.
type Value struct {
	number float64
	date   string
	isDate bool
}

// Number wraps a numeric value.
func Number(f float64) Value { return Value{number: f} }

// Date wraps an ISO date string.
func Date(iso string) Value { return Value{date: iso, isDate: true} }

// Float returns the numeric value; ok is false for dates.
func (v Value) Float() (float64, bool) { return v.number, !v.isDate }

// DateString returns the date; ok is false for numbers.
func (v Value) DateString() (string, bool) { return v.date, v.isDate }

func (v Value) String() string {
	if v.isDate {
		return v.date
	}
	return fmt.Sprintf("%.2f", v.number)
}
