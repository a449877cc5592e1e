// ABOUTME: Tests for Fragment validation
// ABOUTME: Empty text is the only rejection case
package models

import "testing"

func TestFragment_Validate(t *testing.T) {
	tests := []struct {
		name     string
		fragment Fragment
		wantErr  bool
	}{
		{"text present", Fragment{ID: 1, Text: "braising basics"}, false},
		{"empty text", Fragment{ID: 2, Text: ""}, true},
		{"zero id is fine", Fragment{ID: 0, Text: "zero id"}, false},
		{"metadata is optional", Fragment{ID: 3, Text: "with metadata", Metadata: map[string]string{"source": "notes"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fragment.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
