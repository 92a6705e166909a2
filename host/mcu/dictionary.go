package mcu

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Dictionary represents the parsed MCU dictionary.
// Command and response keys are "name format" signatures.
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]interface{}    `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// ParseDictionary decodes dictionary JSON
func ParseDictionary(data []byte) (*Dictionary, error) {
	dict := &Dictionary{}
	if err := json.Unmarshal(data, dict); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	return dict, nil
}

// lookup finds a signature by its leading name
func lookup(entries map[string]int, name string) (int, bool) {
	for sig, id := range entries {
		if sig == name || strings.HasPrefix(sig, name+" ") {
			return id, true
		}
	}
	return 0, false
}

// CommandID returns the ID of a command by name
func (d *Dictionary) CommandID(name string) (int, bool) {
	return lookup(d.Commands, name)
}

// ResponseID returns the ID of a response by name
func (d *Dictionary) ResponseID(name string) (int, bool) {
	return lookup(d.Responses, name)
}

// ConfigUint returns a numeric constant
func (d *Dictionary) ConfigUint(name string) (uint32, bool) {
	v, ok := d.Config[name].(float64)
	if !ok || v < 0 {
		return 0, false
	}
	return uint32(v), true
}

// EnumValue returns the wire code of an enumeration value
func (d *Dictionary) EnumValue(enum, name string) (int, bool) {
	code, ok := d.Enumerations[enum][name]
	return code, ok
}

// EnumName returns the name of a wire code, or the number itself when the
// dictionary does not know it
func (d *Dictionary) EnumName(enum string, code int) string {
	for name, c := range d.Enumerations[enum] {
		if c == code {
			return name
		}
	}
	return fmt.Sprint(code)
}

// Print writes a summary of the dictionary
func (d *Dictionary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== MCU Dictionary ===")
	fmt.Fprintf(w, "Version: %s\n", d.Version)
	fmt.Fprintf(w, "Build: %s\n", d.BuildVersions)

	fmt.Fprintln(w, "\nConfig:")
	for _, k := range sortedKeys(d.Config) {
		fmt.Fprintf(w, "  %s = %v\n", k, d.Config[k])
	}

	printEntries(w, "Commands", d.Commands)
	printEntries(w, "Responses", d.Responses)

	if len(d.Enumerations) > 0 {
		fmt.Fprintln(w, "\nEnumerations:")
		for _, name := range sortedKeys(d.Enumerations) {
			values := d.Enumerations[name]
			names := sortedKeys(values)
			sort.Slice(names, func(i, j int) bool { return values[names[i]] < values[names[j]] })
			fmt.Fprintf(w, "  %s: %s\n", name, strings.Join(names, ", "))
		}
	}
}

func printEntries(w io.Writer, title string, entries map[string]int) {
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(entries))
	sigs := sortedKeys(entries)
	sort.Slice(sigs, func(i, j int) bool { return entries[sigs[i]] < entries[sigs[j]] })
	for _, sig := range sigs {
		fmt.Fprintf(w, "  [%d] %s\n", entries[sig], sig)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
