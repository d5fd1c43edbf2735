package notify

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{
			name: "empty input",
			raw:  nil,
			want: []string{},
		},
		{
			name: "single valid address",
			raw:  []string{"ops@veloship.com"},
			want: []string{"ops@veloship.com"},
		},
		{
			name: "trims whitespace",
			raw:  []string{"  ops@veloship.com  "},
			want: []string{"ops@veloship.com"},
		},
		{
			name: "splits on semicolons and commas",
			raw:  []string{"a@x.com; b@x.com,c@x.com"},
			want: []string{"a@x.com", "b@x.com", "c@x.com"},
		},
		{
			name: "drops malformed entries silently",
			raw:  []string{"not-an-email", "missing@domain", "a@x.com", "@x.com", "a b@x.com"},
			want: []string{"a@x.com"},
		},
		{
			name: "drops empty fragments from splitting",
			raw:  []string{";;a@x.com;;", ", ,"},
			want: []string{"a@x.com"},
		},
		{
			name: "deduplicates exact repeats",
			raw:  []string{"a@x.com", "a@x.com; a@x.com"},
			want: []string{"a@x.com"},
		},
		{
			name: "case-sensitive, different spellings kept",
			raw:  []string{"Ops@x.com", "ops@x.com"},
			want: []string{"Ops@x.com", "ops@x.com"},
		},
		{
			name: "all invalid yields empty set",
			raw:  []string{"nope", "", "   "},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := []string{"b@x.com; a@x.com", "  c@x.com ", "junk", "a@x.com"}

	once := Normalize(raw)
	twice := Normalize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize not idempotent: first %v, second %v", once, twice)
	}
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"ops@veloship.com", true},
		{"first.last+tag@sub.example.co", true},
		{"missing-at.example.com", false},
		{"no-dot@domain", false},
		{"spaces in@x.com", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidAddress(tt.addr); got != tt.want {
			t.Errorf("ValidAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
