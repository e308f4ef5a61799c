package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout is the wire format of review timestamps (local time, second precision).
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the format of the start_date / end_date query filters.
const DateLayout = "2006-01-02"

type Review struct {
	ReviewID   string    `json:"ReviewId,omitempty"` // empty on preloaded rows
	ReviewBody string    `json:"ReviewBody"`
	Location   string    `json:"Location"`
	Timestamp  Timestamp `json:"Timestamp"`
	Sentiment  *Polarity `json:"sentiment,omitempty"` // set only on filtered GET output

	// Row is the 1-based dataset row the review was loaded from; zero for
	// submitted reviews. Repositories key on it, so identical rows stay distinct.
	Row int `json:"-"`
}

// Polarity is the scorer output. Compound is normalized to [-1, 1].
type Polarity struct {
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Pos      float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// Timestamp is a second-precision local time that remembers the text it was
// parsed from, so dataset rows serialize back exactly as loaded.
type Timestamp struct {
	time.Time
	raw string
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Second)}
}

// ParseTimestamp parses s in the local zone.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Time: t, raw: s}, nil
}

func (t Timestamp) String() string {
	if t.raw != "" {
		return t.raw
	}
	return t.Time.Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

// Criteria are the optional GET filters. Nil means "not supplied".
type Criteria struct {
	Location *string
	Start    *time.Time
	End      *time.Time
}

func (c Criteria) Empty() bool {
	return c.Location == nil && c.Start == nil && c.End == nil
}
