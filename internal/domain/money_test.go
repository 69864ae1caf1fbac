package domain

import "testing"

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{name: "whole units", input: "100", want: 10000},
		{name: "two decimal places", input: "30.00", want: 3000},
		{name: "cents only", input: "0.05", want: 5},
		{name: "one decimal place", input: "12.5", want: 1250},
		{name: "negative amount parses", input: "-4.20", want: -420},
		{name: "too much precision", input: "1.999", wantErr: true},
		{name: "max representable", input: "92233720368547758.07", want: 9223372036854775807},
		{name: "past int64 cents", input: "92233720368547758.08", wantErr: true},
		{name: "wraps past uint64 cents", input: "184467440737095517.16", wantErr: true},
		{name: "past int64 cents negative", input: "-92233720368547758.09", wantErr: true},
		{name: "not a number", input: "ten", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseMoney(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		amount Money
		want   string
	}{
		{amount: 7000, want: "70.00"},
		{amount: 5, want: "0.05"},
		{amount: 0, want: "0.00"},
		{amount: 123456, want: "1234.56"},
	}

	for _, tt := range tests {
		if got := tt.amount.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestParseMoneyRoundTrip(t *testing.T) {
	for _, s := range []string{"0.01", "19.99", "1000.00"} {
		m, err := ParseMoney(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.String() != s {
			t.Errorf("round trip of %q produced %q", s, m.String())
		}
	}
}
