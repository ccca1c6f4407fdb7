package history

import "time"

const (
	// SchemaVersion is the only persisted format this package reads.
	SchemaVersion = 1
	// RetentionDays bounds how long a delivered article is remembered.
	RetentionDays = 90
	// DateLayout is the ISO calendar date used for sent_date.
	DateLayout = "2006-01-02"
)

// Record is one previously delivered article.
type Record struct {
	URL           string `json:"url"`
	URLNormalized string `json:"url_normalized"`
	Title         string `json:"title"`
	CategoryID    string `json:"category_id"`
	SentDate      string `json:"sent_date,omitempty"`
}

// Store is the versioned container persisted between runs.
// Articles keeps delivery order and is never deduplicated against itself.
type Store struct {
	Version     int      `json:"version"`
	LastUpdated *string  `json:"last_updated"`
	Articles    []Record `json:"articles"`
}

// NewStore returns an empty store at the current schema version.
func NewStore() *Store {
	return &Store{
		Version:  SchemaVersion,
		Articles: []Record{},
	}
}

// Updated reports when the store was last saved, if ever.
func (s *Store) Updated() (time.Time, bool) {
	if s == nil || s.LastUpdated == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, *s.LastUpdated)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Cutoff returns the oldest calendar date still inside the retention window.
func Cutoff(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -RetentionDays)
}

// Prune drops records whose sent_date is strictly before the retention
// cutoff and returns how many were removed. Records without a parseable
// date cannot be proven stale and are kept.
func Prune(s *Store, now time.Time) int {
	if s == nil {
		return 0
	}

	cutoff := Cutoff(now)
	kept := s.Articles[:0]
	for _, rec := range s.Articles {
		sent, err := time.Parse(DateLayout, rec.SentDate)
		if err == nil && sent.Before(cutoff) {
			continue
		}
		kept = append(kept, rec)
	}

	pruned := len(s.Articles) - len(kept)
	clear(s.Articles[len(kept):])
	s.Articles = kept
	return pruned
}
