package app

import (
	"net/url"
	"time"

	"review_analyzer/internal/domain"
)

// FirstValue returns the first non-empty value of key. Empty values are
// skipped, so "a=&a=x" yields "x".
func FirstValue(v url.Values, key string) string {
	for _, s := range v[key] {
		if s != "" {
			return s
		}
	}
	return ""
}

// ParseCriteria builds filters from a GET query. Blank values count as absent
// and only the first non-blank value of a repeated key is used.
func ParseCriteria(q url.Values) (domain.Criteria, error) {
	var c domain.Criteria
	if v := FirstValue(q, "location"); v != "" {
		c.Location = &v
	}
	var err error
	if c.Start, err = parseDate(q, "start_date"); err != nil {
		return domain.Criteria{}, err
	}
	if c.End, err = parseDate(q, "end_date"); err != nil {
		return domain.Criteria{}, err
	}
	return c, nil
}

// parseDate returns midnight local time of the YYYY-MM-DD value under key.
func parseDate(q url.Values, key string) (*time.Time, error) {
	v := FirstValue(q, key)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(domain.DateLayout, v, time.Local)
	if err != nil {
		return nil, domain.ParseError(key, v, err)
	}
	return &t, nil
}
