package core

import (
	"time"
)

// Timestamp is a UTC instant recorded on run records.
type Timestamp time.Time

// Now returns the current timestamp in UTC
func Now() Timestamp {
	return Timestamp(time.Now().UTC())
}

func (t Timestamp) Time() time.Time { return time.Time(t) }
func (t Timestamp) IsZero() bool    { return time.Time(t).IsZero() }
func (t Timestamp) String() string  { return t.Time().Format(time.RFC3339Nano) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return time.Time(t).MarshalJSON()
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var tm time.Time
	if err := tm.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = Timestamp(tm)
	return nil
}
