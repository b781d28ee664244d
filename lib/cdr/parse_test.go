// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cdr

import (
	"errors"
	"strings"
	"testing"
)

func TestParseStrict(t *testing.T) {
	record, err := ParseStrict("1001|Vodafone|22210|MOC|120.5|0|0|2002|22210")
	if err != nil {
		t.Fatalf("ParseStrict: %v", err)
	}
	want := Record{
		SubscriberID:    1001,
		OperatorName:    "Vodafone",
		OperatorCode:    "22210",
		Tag:             "MOC",
		Duration:        120.5,
		CounterpartID:   2002,
		CounterpartCode: "22210",
	}
	if record != want {
		t.Errorf("ParseStrict() = %+v, want %+v", record, want)
	}
	if !record.SameOperator() {
		t.Error("SameOperator() = false for matching codes")
	}
}

func TestParseStrictEmptyCounterpartID(t *testing.T) {
	record, err := ParseStrict("1001|Vodafone|22210|GPRS|0|12.5|3.25||22210")
	if err != nil {
		t.Fatalf("ParseStrict: %v", err)
	}
	if record.CounterpartID != 0 || record.Download != 12.5 || record.Upload != 3.25 {
		t.Errorf("ParseStrict() = %+v", record)
	}
}

func TestParseStrictRejects(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"too few fields", "1001|Vodafone|22210|MOC|120", ""},
		{"too many fields", "1001|Vodafone|22210|MOC|1|0|0|2002|22210|x", ""},
		{"bad subscriber", "abc|Vodafone|22210|MOC|1|0|0|2002|22210", "subscriber"},
		{"empty operator name", "1001||22210|MOC|1|0|0|2002|22210", "operator name"},
		{"bad duration", "1001|Vodafone|22210|MOC|long|0|0|2002|22210", "duration"},
		{"empty tag", "1001|Vodafone|22210||1|0|0|2002|22210", "type"},
		{"empty counterpart code", "1001|Vodafone|22210|MOC|1|0|0|2002|", "counterpart code"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseStrict(test.line)
			if err == nil {
				t.Fatal("ParseStrict succeeded, want error")
			}
			if test.field == "" {
				if !errors.Is(err, ErrFieldCount) {
					t.Errorf("err = %v, want ErrFieldCount", err)
				}
				return
			}
			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) || fieldErr.Field != test.field {
				t.Errorf("err = %v, want FieldError on %s", err, test.field)
			}
		})
	}
}

func TestParseLenient(t *testing.T) {
	record, err := ParseLenient("1001|Vodafone|22210|moc|120.9|x|7MB|2002|")
	if err != nil {
		t.Fatalf("ParseLenient: %v", err)
	}
	if record.Duration != 120 || record.Download != 0 || record.Upload != 7 {
		t.Errorf("numeric fields = %v/%v/%v, want 120/0/7", record.Duration, record.Download, record.Upload)
	}
	if record.Tag != "moc" || record.OperatorCode != "22210" {
		t.Errorf("ParseLenient() = %+v", record)
	}

	if _, err := ParseLenient("1001|Vodafone||MOC|1|0|0|2002|22210"); err == nil {
		t.Error("ParseLenient accepted an empty operator code")
	}
	if _, err := ParseLenient("1001|Vodafone|22210"); !errors.Is(err, ErrFieldCount) {
		t.Errorf("short line: err = %v, want ErrFieldCount", err)
	}
}

func TestLeadingInteger(t *testing.T) {
	tests := map[string]int64{
		"42":    42,
		"  42x": 42,
		"-7.9":  -7,
		"+3":    3,
		"":      0,
		"abc":   0,
		"-":     0,
	}
	for input, want := range tests {
		if got := LeadingInteger(input); got != want {
			t.Errorf("LeadingInteger(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		tag   string
		match TagMatch
		want  Type
	}{
		{"MOC", MatchExact, OutgoingCall},
		{"moc", MatchExact, Unknown},
		{"moc", MatchFold, OutgoingCall},
		{"SMS-MT", MatchExact, IncomingSMS},
		{"sms-mo", MatchFold, OutgoingSMS},
		{"GPRS", MatchExact, Data},
		{"VOLTE", MatchFold, Unknown},
	}
	for _, test := range tests {
		if got := Classify(test.tag, test.match); got != test.want {
			t.Errorf("Classify(%q, %v) = %v, want %v", test.tag, test.match, got, test.want)
		}
	}
}

func TestParseTagMatch(t *testing.T) {
	for input, want := range map[string]TagMatch{"": MatchExact, "exact": MatchExact, "FOLD": MatchFold} {
		got, ok := ParseTagMatch(input)
		if !ok || got != want {
			t.Errorf("ParseTagMatch(%q) = %v, %v", input, got, ok)
		}
	}
	if _, ok := ParseTagMatch("sometimes"); ok {
		t.Error("ParseTagMatch accepted an unknown mode")
	}
}

func TestLines(t *testing.T) {
	source := "a\r\n\nb\nc"
	var got []string
	var numbers []int
	err := Lines(strings.NewReader(source), func(number int, line string) error {
		got = append(got, line)
		numbers = append(numbers, number)
		return nil
	})
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("lines = %q", got)
	}
	if numbers[2] != 4 {
		t.Errorf("line numbers = %v, want blank line counted", numbers)
	}
}
