package source

import "testing"

func TestMatchTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		query string
		want  bool
	}{
		{"case-insensitive substring", "Mozilla Firefox", "firefox", true},
		{"exact", "htop", "htop", true},
		{"no match", "Terminal", "firefox", false},
		{"empty query never matches", "Terminal", "", false},
		{"empty title", "", "firefox", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchTitle(tt.title, tt.query); got != tt.want {
				t.Errorf("matchTitle(%q, %q) = %v, want %v", tt.title, tt.query, got, tt.want)
			}
		})
	}
}
