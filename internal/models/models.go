package models

import "time"

// Record is an entry in the search history.
type Record interface {
	ID() string
	CreatedAt() time.Time
	Validate() error
}

// Criteria filters a history listing. Keys name columns; "limit" caps the number of results.
type Criteria map[string]any

// Text returns the string stored under key, if it is set and non-empty.
func (c Criteria) Text(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok && v != ""
}

// Float returns the float64 stored under key.
func (c Criteria) Float(key string) (float64, bool) {
	v, ok := c[key].(float64)
	return v, ok
}

// Limit returns a positive "limit".
func (c Criteria) Limit() (int, bool) {
	n, ok := c["limit"].(int)
	return n, ok && n > 0
}

// Store persists one kind of [Record]. Implemented by the sqlite repositories.
type Store[T Record] interface {
	Create(record T) error
	Get(id string) (T, error)
	Update(record T) error
	Delete(id string) error
	List(criteria Criteria) ([]T, error)
}
