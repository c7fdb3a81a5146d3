package cmd

import (
	"reflect"
	"testing"
)

func TestParseDeviceMap(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want map[string]int
	}{
		{"empty", "", nil},
		{"pair list", "cuda:0:32,cpu:4", map[string]int{"cuda:0": 32, "cpu": 4}},
		{"single pair", "cuda:0:32", map[string]int{"cuda:0": 32}},
		{"dict literal", "{'cuda:0': 32, 'cpu': 4}", map[string]int{"cuda:0": 32, "cpu": 4}},
		{"dict literal double quotes", `{"cpu": 8}`, map[string]int{"cpu": 8}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := parseDeviceMap(c.in)
			if err != nil {
				t.Fatalf("parseDeviceMap(%q): %v", c.in, err)
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("parseDeviceMap(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestParseDeviceMapRejectsMalformedPair(t *testing.T) {
	if _, err := parseDeviceMap("cuda-no-colon"); err == nil {
		t.Fatal("expected an error for a pair missing ':'")
	}
}
