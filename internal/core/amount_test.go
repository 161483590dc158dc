package core

import (
	"math"
	"testing"
)

func TestFormatAmount(t *testing.T) {
	a, b := 0.1, 0.2
	cases := []struct {
		in  float64
		out string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{50, "50"},
		{75, "75"},
		{12.5, "12.5"},
		{-3.25, "-3.25"},
		{a + b, "0.30000000000000004"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e22, "1.5e+22"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.25e-8, "1.25e-8"},
		{123456.789, "123456.789"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.out {
			t.Fatalf("FormatAmount(%v) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
