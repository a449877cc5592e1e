// ABOUTME: Fragment is the atomic unit of input text with caller-assigned identity
// ABOUTME: Immutable once stored; owned by whichever chunk store holds it
package models

import "errors"

// Fragment is a single piece of input text. The ID is assigned by the
// caller and must be unique across the corpus.
type Fragment struct {
	ID       int64             `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks that the fragment carries usable data
func (f *Fragment) Validate() error {
	if f.Text == "" {
		return errors.New("fragment text cannot be empty")
	}
	return nil
}
