package main

import "testing"

func TestValidateSymbol(t *testing.T) {
	cases := []struct {
		symbol  string
		wantErr bool
	}{
		{"AAPL", false},
		{"BTC1", false},
		{"", true},
		{"aapl", true},
		{"TOOLONGSYMBOL", true},
		{"AA-PL", true},
	}

	for _, c := range cases {
		err := validateSymbol(c.symbol)
		if (err != nil) != c.wantErr {
			t.Errorf("validateSymbol(%q): wantErr=%v, got err=%v", c.symbol, c.wantErr, err)
		}
	}
}

func TestValidateTimeframe(t *testing.T) {
	cases := []struct {
		timeframe string
		wantErr   bool
	}{
		{"1min", false},
		{"1day", false},
		{"1week", false},
		{"2day", true},
		{"", true},
	}

	for _, c := range cases {
		err := validateTimeframe(c.timeframe)
		if (err != nil) != c.wantErr {
			t.Errorf("validateTimeframe(%q): wantErr=%v, got err=%v", c.timeframe, c.wantErr, err)
		}
	}
}

func TestValidateOutputFormat(t *testing.T) {
	cases := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"table", false},
		{"JSON", false},
		{"xml", true},
	}

	for _, c := range cases {
		err := validateOutputFormat(c.format)
		if (err != nil) != c.wantErr {
			t.Errorf("validateOutputFormat(%q): wantErr=%v, got err=%v", c.format, c.wantErr, err)
		}
	}
}
