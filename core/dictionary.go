package core

import (
	"sync"

	"sensorslave/protocol"
)

// Constant represents a firmware constant exposed to the host
type Constant struct {
	Name  string
	Value string
}

// Dictionary describes the firmware to the host: version, constants and
// the command/response IDs. It is served in chunks by the identify command.
type Dictionary struct {
	mu         sync.RWMutex
	constants  []Constant
	commandReg *CommandRegistry
	version    string
	mcu        string
	cachedDict []byte
}

var globalDictionary = NewDictionary(globalRegistry)

// NewDictionary creates a new dictionary over cmdReg
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		commandReg: cmdReg,
		version:    "sensorslave-" + protocol.Version,
		mcu:        "rp2040",
	}
}

// GetGlobalDictionary returns the dictionary of the global registry
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}

// RegisterConstant registers a constant in the global dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// AddConstant adds or replaces a constant and drops the cached dictionary
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cachedDict = nil
	v := valueToString(value)
	for i := range d.constants {
		if d.constants[i].Name == name {
			d.constants[i].Value = v
			return
		}
	}
	d.constants = append(d.constants, Constant{Name: name, Value: v})
}

// SetMCU sets the MCU name reported to the host
func (d *Dictionary) SetMCU(mcu string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cachedDict = nil
	d.mcu = mcu
}

// BuildDictionary renders and caches the dictionary. Call it after all
// commands are registered.
func (d *Dictionary) BuildDictionary() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cachedDict = d.buildJSONLocked()
	DebugPrintln("[Dict] " + itoa(len(d.cachedDict)) + " bytes")
}

// Generate returns the dictionary, building it if needed
func (d *Dictionary) Generate() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cachedDict == nil {
		d.cachedDict = d.buildJSONLocked()
	}
	return d.cachedDict
}

// GetChunk returns up to count bytes of the dictionary starting at offset
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	dict := d.Generate()
	if offset >= uint32(len(dict)) {
		return nil
	}
	end := offset + uint32(count)
	if end > uint32(len(dict)) {
		end = uint32(len(dict))
	}
	return dict[offset:end]
}

// buildJSONLocked writes the dictionary as JSON without encoding/json.
// Names and formats never contain quotes or backslashes.
func (d *Dictionary) buildJSONLocked() []byte {
	result := make([]byte, 0, 1024)

	result = append(result, `{"version":"`...)
	result = append(result, d.version...)
	result = append(result, `","mcu":"`...)
	result = append(result, d.mcu...)
	result = append(result, `","config":{`...)
	for i, c := range d.constants {
		if i > 0 {
			result = append(result, ',')
		}
		result = append(result, '"')
		result = append(result, c.Name...)
		result = append(result, `":"`...)
		result = append(result, c.Value...)
		result = append(result, '"')
	}

	cmds := d.commandReg.Commands()
	result = appendEntries(append(result, `},"commands":{`...), cmds, false)
	result = appendEntries(append(result, `},"responses":{`...), cmds, true)
	result = append(result, `}}`...)
	return result
}

func appendEntries(result []byte, cmds []*Command, responses bool) []byte {
	first := true
	for _, cmd := range cmds {
		if cmd.IsResponse() != responses {
			continue
		}
		if !first {
			result = append(result, ',')
		}
		first = false
		result = append(result, '"')
		result = append(result, cmd.Name...)
		if cmd.Format != "" {
			result = append(result, ' ')
			result = append(result, cmd.Format...)
		}
		result = append(result, `":`...)
		result = append(result, itoa(int(cmd.ID))...)
	}
	return result
}

func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return itoa(val)
	case uint8:
		return itoa(int(val))
	case uint16:
		return itoa(int(val))
	case uint32:
		return itoa(int(val))
	case bool:
		if val {
			return "1"
		}
		return "0"
	}
	return ""
}
