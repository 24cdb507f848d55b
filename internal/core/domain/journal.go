package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// Mood is stored as its positivity score, from 1 (Terrible) to 5 (Amazing).
type Mood int

const (
	MoodTerrible Mood = iota + 1
	MoodBad
	MoodNeutral
	MoodGood
	MoodAmazing
)

var moodNames = map[Mood]string{
	MoodTerrible: "terrible",
	MoodBad:      "bad",
	MoodNeutral:  "neutral",
	MoodGood:     "good",
	MoodAmazing:  "amazing",
}

func AllMoods() []Mood {
	return []Mood{MoodTerrible, MoodBad, MoodNeutral, MoodGood, MoodAmazing}
}

func (m Mood) IsValid() bool {
	return m >= MoodTerrible && m <= MoodAmazing
}

func (m Mood) String() string {
	if name, ok := moodNames[m]; ok {
		return name
	}
	return moodNames[MoodNeutral]
}

// ParseMood accepts a score or a name; anything else is Neutral.
func ParseMood(s string) Mood {
	if n, err := strconv.Atoi(s); err == nil {
		if m := Mood(n); m.IsValid() {
			return m
		}
		return MoodNeutral
	}
	for m, name := range moodNames {
		if name == s {
			return m
		}
	}
	return MoodNeutral
}

func (m Mood) Value() (driver.Value, error) {
	if !m.IsValid() {
		return int64(MoodNeutral), nil
	}
	return int64(m), nil
}

func (m *Mood) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*m = Mood(v)
		if !m.IsValid() {
			*m = MoodNeutral
		}
	case int32:
		return m.Scan(int64(v))
	case string:
		*m = ParseMood(v)
	case []byte:
		*m = ParseMood(string(v))
	case nil:
		*m = MoodNeutral
	default:
		return fmt.Errorf("cannot scan %T into Mood", src)
	}
	return nil
}

type JournalEntry struct {
	Date             Date   `json:"date" db:"date"`
	Note             string `json:"note" db:"note"`
	IsStarred        bool   `json:"is_starred" db:"is_starred"`
	Mood             *Mood  `json:"mood,omitempty" db:"mood"`
	HabitsCalculated bool   `json:"habits_calculated" db:"habits_calculated"`
}

func (e JournalEntry) Clone() JournalEntry {
	clone := e
	if e.Mood != nil {
		mood := *e.Mood
		clone.Mood = &mood
	}
	return clone
}
