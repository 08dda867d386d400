// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"ab", "abc", 1},
		{"abc", "bac", 2},
		{"kitten", "sitting", 3},
		{"schema", "schmea", 2},
		{"manifest", "manifset", 2},
		{"deltabits", "deltabit", 1},
	}

	for _, test := range tests {
		t.Run(test.a+"/"+test.b, func(t *testing.T) {
			if got := levenshtein(test.a, test.b); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if got := levenshtein(test.b, test.a); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.b, test.a, got, test.want)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "schema"},
		{Name: "manifest"},
		{Name: "deltabits"},
		{Name: "roundtrip"},
		{Name: "baseline"},
		{Name: "version"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"schem", "schema"},
		{"manfest", "manifest"},
		{"deltabit", "deltabits"},
		{"roundtirp", "roundtrip"},
		{"baselin", "baseline"},
		{"vrsion", "version"},
		{"zzzzzzzzz", ""},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			if got := suggestCommand(test.input, commands); got != test.want {
				t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestSuggestFlag(t *testing.T) {
	makeFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.String("schema", "", "")
		flagSet.String("table", "", "")
		flagSet.String("config", "", "")
		flagSet.Bool("hex", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"typo", []string{"--shema", "x.yaml"}, "--schema"},
		{"single dash", []string{"-tabel"}, "--table"},
		{"with value", []string{"--confg=dt.yaml"}, "--config"},
		{"defined flags skipped", []string{"--schema", "x", "--tble", "y"}, "--table"},
		{"nothing close", []string{"--zzzzzzzzz"}, ""},
		{"positional only", []string{"instance.json"}, ""},
		{"after terminator", []string{"--", "--shema"}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, makeFlagSet()); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
