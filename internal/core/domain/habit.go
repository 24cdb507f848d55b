package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
)

type HabitFrequency string

const (
	HabitFrequencyDaily   HabitFrequency = "DAILY"
	HabitFrequencyWeekly  HabitFrequency = "WEEKLY"
	HabitFrequencyMonthly HabitFrequency = "MONTHLY"
	HabitFrequencyNone    HabitFrequency = "NONE"
)

func ParseHabitFrequency(s string) HabitFrequency {
	switch f := HabitFrequency(strings.ToUpper(strings.TrimSpace(s))); f {
	case HabitFrequencyDaily, HabitFrequencyWeekly, HabitFrequencyMonthly:
		return f
	default:
		return HabitFrequencyNone
	}
}

func (f HabitFrequency) Value() (driver.Value, error) {
	return string(ParseHabitFrequency(string(f))), nil
}

func (f *HabitFrequency) Scan(src any) error {
	s, err := scanEnumText(src, "HabitFrequency")
	if err != nil {
		return err
	}
	*f = ParseHabitFrequency(s)
	return nil
}

type HabitTrend string

const (
	HabitTrendUp      HabitTrend = "UP"
	HabitTrendDown    HabitTrend = "DOWN"
	HabitTrendNeutral HabitTrend = "NEUTRAL"
	HabitTrendNone    HabitTrend = "NONE"
)

func ParseHabitTrend(s string) HabitTrend {
	switch t := HabitTrend(strings.ToUpper(strings.TrimSpace(s))); t {
	case HabitTrendUp, HabitTrendDown, HabitTrendNeutral:
		return t
	default:
		return HabitTrendNone
	}
}

func (t HabitTrend) Value() (driver.Value, error) {
	return string(ParseHabitTrend(string(t))), nil
}

func (t *HabitTrend) Scan(src any) error {
	s, err := scanEnumText(src, "HabitTrend")
	if err != nil {
		return err
	}
	*t = ParseHabitTrend(s)
	return nil
}

// scanEnumText accepts the column shapes drivers hand back for TEXT values.
// NULL scans as the empty string so the caller's default applies.
func scanEnumText(src any, name string) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into %s", src, name)
	}
}

type Habit struct {
	ID                int64  `json:"id" db:"id"`
	Name              string `json:"name" db:"name"`
	CurrentlyTracking bool   `json:"currently_tracking" db:"currently_tracking"`
	CurrentlyBuilding bool   `json:"currently_building" db:"currently_building"`
}

// HabitPerformed records that a habit was done on a date. It is the raw
// history every frequency and trend is derived from.
type HabitPerformed struct {
	HabitID int64 `json:"habit_id" db:"habit_id"`
	Date    Date  `json:"date" db:"date"`
}

// HabitStatus is the persisted classification of a habit as of Date. It must
// only reflect performances on or before Date.
type HabitStatus struct {
	HabitID     int64          `json:"habit_id" db:"habit_id"`
	Date        Date           `json:"date" db:"date"`
	Frequency   HabitFrequency `json:"frequency" db:"frequency"`
	Trend       HabitTrend     `json:"trend" db:"trend"`
	WasBuilding bool           `json:"was_building" db:"was_building"`
}

type HabitStatusDetails struct {
	HabitStatus
	Name          string `json:"name" db:"name"`
	LastPerformed *Date  `json:"last_performed,omitempty" db:"last_performed"`
}

// TrackedHabit is a tracked habit annotated with what is known about it on
// one particular day.
type TrackedHabit struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Frequency     HabitFrequency `json:"frequency"`
	Trend         HabitTrend     `json:"trend"`
	WasBuilding   bool           `json:"was_building"`
	WasPerformed  bool           `json:"was_performed"`
	LastPerformed *Date          `json:"last_performed,omitempty"`
	IsNew         bool           `json:"is_new"`
}

func NewTrackedHabit(h Habit) TrackedHabit {
	return TrackedHabit{
		ID:          h.ID,
		Name:        h.Name,
		Frequency:   HabitFrequencyNone,
		Trend:       HabitTrendNone,
		WasBuilding: h.CurrentlyBuilding,
		IsNew:       true,
	}
}

func (h TrackedHabit) Clone() TrackedHabit {
	clone := h
	if h.LastPerformed != nil {
		last := *h.LastPerformed
		clone.LastPerformed = &last
	}
	return clone
}

func IndexOfTrackedHabit(habits []TrackedHabit, id int64) int {
	for i, h := range habits {
		if h.ID == id {
			return i
		}
	}
	return -1
}

func IndexOfHabit(habits []Habit, id int64) int {
	for i, h := range habits {
		if h.ID == id {
			return i
		}
	}
	return -1
}
