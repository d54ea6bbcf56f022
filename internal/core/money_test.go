package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"simple dot", "12.34", 1234, false},
		{"comma separator", "12,34", 1234, false},
		{"integer", "45", 4500, false},
		{"single fraction digit", "12.5", 1250, false},
		{"rounds down", "12.345", 1234, false},
		{"rounds up", "12.346", 1235, false},
		{"leading dot", ".50", 50, false},
		{"empty", "", 0, true},
		{"whitespace only", "   ", 0, true},
		{"negative", "-5.00", 0, true},
		{"explicit plus", "+5.00", 0, true},
		{"zero", "0", 0, true},
		{"zero with fraction", "0.00", 0, true},
		{"letters", "abc", 0, true},
		{"two dots", "1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDecimalToCents(%q) = %d, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyDecimal(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1250, "12.50"},
		{1234, "12.34"},
		{100, "1.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-150, "-1.50"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).Decimal(); got != tt.want {
			t.Errorf("Money{%d}.Decimal() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoneyAmount(t *testing.T) {
	if got := (Money{Cents: 1250}).Amount(); got != 12.5 {
		t.Errorf("Amount() = %v, want 12.5", got)
	}
}
