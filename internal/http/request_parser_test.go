package http

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{`"12.34"`, 1234, false},
		{`"12,34"`, 1234, false},
		{`25`, 2500, false},
		{`19.99`, 1999, false},
		{`"0"`, 0, true},
		{`"-5"`, 0, true},
		{`""`, 0, true},
		{`"abc"`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var a amountField
			if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.in, err)
			}
			got, err := parseAmount(a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmount(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got.Cents != tt.want {
				t.Errorf("parseAmount(%s) = %d, want %d", tt.in, got.Cents, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  coffee  ", "coffee"},
		{"line\nbreaks\tok", "line\nbreaks\tok"},
		{"null\x00byte", "nullbyte"},
		{"bell\x07", "bell"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
