package core

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"io"
	"testing"
)

type dictionaryDoc struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]interface{}    `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations"`
}

func newTestDictionary() *Dictionary {
	dict := NewDictionary(NewCommandRegistry())
	dict.SetVersion("joyrec-test")
	dict.AddConstant("TEST_CONST", uint32(42))
	dict.AddConstant("TEST_STR", `say "hi"`)
	dict.AddConstant("TEST_FLAG", true)
	dict.AddEnumeration("test_pins", []string{"PA0", "", "PB0"})

	dict.commandReg.Register("test_cmd", "arg=%u", func(data *[]byte) error { return nil })
	dict.commandReg.Register("test_resp", "val=%u", nil)
	return dict
}

func TestDictionaryJSON(t *testing.T) {
	dict := newTestDictionary()
	raw := dict.JSON()
	t.Logf("Dictionary: %s", raw)

	var doc dictionaryDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Dictionary is not valid JSON: %v", err)
	}

	if doc.Version != "joyrec-test" {
		t.Errorf("Unexpected version %q", doc.Version)
	}
	if doc.Config["TEST_CONST"] != float64(42) {
		t.Errorf("TEST_CONST = %v", doc.Config["TEST_CONST"])
	}
	if doc.Config["TEST_STR"] != `say "hi"` {
		t.Errorf("TEST_STR = %v", doc.Config["TEST_STR"])
	}
	if doc.Config["TEST_FLAG"] != true {
		t.Errorf("TEST_FLAG = %v", doc.Config["TEST_FLAG"])
	}
	if id, ok := doc.Commands["test_cmd arg=%u"]; !ok || id != 0 {
		t.Errorf("test_cmd missing or wrong ID: %v", doc.Commands)
	}
	if id, ok := doc.Responses["test_resp val=%u"]; !ok || id != 1 {
		t.Errorf("test_resp missing or wrong ID: %v", doc.Responses)
	}
	if len(doc.Commands) != 1 || len(doc.Responses) != 1 {
		t.Errorf("Commands and responses must not mix: %v / %v", doc.Commands, doc.Responses)
	}

	pins := doc.Enumerations["test_pins"]
	if pins["PA0"] != 0 || pins["PB0"] != 2 || len(pins) != 2 {
		t.Errorf("Unexpected enumeration %v", pins)
	}
}

func TestDictionaryCompressed(t *testing.T) {
	dict := newTestDictionary()
	dict.BuildDictionary()

	r, err := zlib.NewReader(bytes.NewReader(dict.Generate()))
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	inflated, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if !bytes.Equal(inflated, dict.JSON()) {
		t.Error("Compressed dictionary does not inflate to the JSON")
	}
}

func TestDictionaryCacheInvalidation(t *testing.T) {
	dict := newTestDictionary()
	before := dict.Generate()

	dict.AddConstant("LATE", 1)
	after := dict.Generate()
	if bytes.Equal(before, after) {
		t.Error("Adding a constant must rebuild the dictionary")
	}
}

func TestDictionaryChunks(t *testing.T) {
	dict := newTestDictionary()
	full := dict.Generate()

	var rebuilt []byte
	for offset := uint32(0); ; offset += 40 {
		chunk := dict.GetChunk(offset, 40)
		if len(chunk) == 0 {
			break
		}
		rebuilt = append(rebuilt, chunk...)
	}
	if !bytes.Equal(rebuilt, full) {
		t.Errorf("Chunks rebuilt %d bytes, expected %d", len(rebuilt), len(full))
	}

	if chunk := dict.GetChunk(uint32(len(full))+10, 40); len(chunk) != 0 {
		t.Errorf("Chunk past the end should be empty, got %d bytes", len(chunk))
	}
}
