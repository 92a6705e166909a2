package core

import (
	"runtime"
	"sort"
	"sync"

	"joyrec/protocol"
	"joyrec/tinycompress"
)

// Dictionary describes the firmware to the host: version, constants,
// command and response formats, and enumerations. It is served zlib
// wrapped through identify.
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]interface{}
	enumerations  map[string][]string
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cachedDict    []byte
}

var globalDictionary = NewDictionary(globalRegistry)

// NewDictionary creates a dictionary over the given registry
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]interface{}),
		enumerations:  make(map[string][]string),
		commandReg:    cmdReg,
		version:       protocol.Version,
		buildVersions: runtime.Version(),
	}
}

// RegisterConstant adds a constant to the global dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// RegisterEnumeration adds an enumeration to the global dictionary.
// A value's position is its wire code; empty names are skipped.
func RegisterEnumeration(name string, values []string) {
	globalDictionary.AddEnumeration(name, values)
}

func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = value
	d.cachedDict = nil
}

func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Own copy; TinyGo may reuse the caller's backing array
	d.enumerations[name] = append([]string(nil), values...)
	d.cachedDict = nil
}

func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.cachedDict = nil
}

func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
	d.cachedDict = nil
}

// BuildDictionary compresses and caches the dictionary.
// Call once every command is registered.
func (d *Dictionary) BuildDictionary() {
	// Registry lock is taken before ours, never inside it
	entries := d.commandReg.Entries()

	d.mu.Lock()
	defer d.mu.Unlock()

	jsonData := d.buildJSONLocked(entries)
	d.cachedDict = tinycompress.Compress(jsonData)
	DebugPrintln("[DICT] " + itoa(len(jsonData)) + " bytes, " + itoa(len(d.cachedDict)) + " compressed")
}

// Generate returns the compressed dictionary, building it if needed
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cachedDict
	d.mu.RUnlock()
	if cached != nil {
		return cached
	}
	d.BuildDictionary()

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cachedDict
}

// JSON returns the uncompressed dictionary
func (d *Dictionary) JSON() []byte {
	entries := d.commandReg.Entries()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buildJSONLocked(entries)
}

// buildJSONLocked writes the dictionary by hand; encoding/json is heavy
// on the MCU. Caller holds d.mu.
func (d *Dictionary) buildJSONLocked(entries []*Command) []byte {
	out := make([]byte, 0, 1024)

	out = append(out, `{"version":`...)
	out = appendJSONString(out, d.version)
	out = append(out, `,"build_versions":`...)
	out = appendJSONString(out, d.buildVersions)

	out = append(out, `,"config":{`...)
	for i, name := range sortedKeys(d.constants) {
		if i > 0 {
			out = append(out, ',')
		}
		out = appendJSONString(out, name)
		out = append(out, ':')
		out = appendJSONValue(out, d.constants[name])
	}

	// entries are in ID order
	out = append(out, `},"commands":{`...)
	out = appendEntries(out, entries, true)
	out = append(out, `},"responses":{`...)
	out = appendEntries(out, entries, false)
	out = append(out, '}')

	if len(d.enumerations) > 0 {
		out = append(out, `,"enumerations":{`...)
		for i, name := range sortedKeys(d.enumerations) {
			if i > 0 {
				out = append(out, ',')
			}
			out = appendJSONString(out, name)
			out = append(out, ":{"...)
			first := true
			for code, value := range d.enumerations[name] {
				if value == "" {
					continue
				}
				if !first {
					out = append(out, ',')
				}
				out = appendJSONString(out, value)
				out = append(out, ':')
				out = append(out, itoa(code)...)
				first = false
			}
			out = append(out, '}')
		}
		out = append(out, '}')
	}

	return append(out, '}')
}

func appendEntries(out []byte, entries []*Command, commands bool) []byte {
	first := true
	for _, cmd := range entries {
		if (cmd.Handler != nil) != commands {
			continue
		}
		if !first {
			out = append(out, ',')
		}
		out = appendJSONString(out, cmd.Signature())
		out = append(out, ':')
		out = append(out, itoa(int(cmd.ID))...)
		first = false
	}
	return out
}

// appendJSONValue writes numbers and booleans bare and everything else
// as a string
func appendJSONValue(out []byte, v interface{}) []byte {
	switch val := v.(type) {
	case int, uint8, uint32, uint64:
		return append(out, valueToString(v)...)
	case bool:
		if val {
			return append(out, "true"...)
		}
		return append(out, "false"...)
	default:
		return appendJSONString(out, valueToString(v))
	}
}

func appendJSONString(out []byte, s string) []byte {
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			out = append(out, '\\', c)
		case c < 0x20:
			out = append(out, `\u00`...)
			out = append(out, "0123456789abcdef"[c>>4], "0123456789abcdef"[c&0xF])
		default:
			out = append(out, c)
		}
	}
	return append(out, '"')
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetChunk returns a copy of up to count bytes of the compressed
// dictionary starting at offset. Past the end it returns an empty slice.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	// Copy; the USB path may still hold the slice after a rebuild
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

// GetGlobalDictionary returns the global dictionary instance
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
