package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// parseDeviceMap accepts either the comma-separated "dev:layers,dev:layers"
// form or a Python-dict-like literal such as "{'cuda:0': 32, 'cpu': 4}",
// matching the two --device/--moe_device syntaxes the gateway documents.
// An empty string returns a nil map, meaning "let the engine decide."
func parseDeviceMap(s string) (map[string]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "{") {
		return parseDictLiteral(s)
	}
	return parsePairList(s)
}

func parsePairList(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.LastIndex(pair, ":")
		if idx < 0 {
			return nil, fmt.Errorf("device map entry %q must be dev:layers", pair)
		}
		dev, layers := pair[:idx], pair[idx+1:]
		n, err := strconv.Atoi(strings.TrimSpace(layers))
		if err != nil {
			return nil, fmt.Errorf("device map entry %q: %w", pair, err)
		}
		out[strings.TrimSpace(dev)] = n
	}
	return out, nil
}

func parseDictLiteral(s string) (map[string]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	out := make(map[string]int)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idx := strings.LastIndex(entry, ":")
		if idx < 0 {
			return nil, fmt.Errorf("device map entry %q must be 'dev': n", entry)
		}
		key, val := entry[:idx], entry[idx+1:]
		key = strings.Trim(strings.TrimSpace(key), `'"`)
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("device map entry %q: %w", entry, err)
		}
		out[key] = n
	}
	return out, nil
}
