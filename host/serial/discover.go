package serial

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// USB IDs of the RP2040 when running TinyGo firmware
const (
	PicoVID = "2E8A"
	PicoPID = "000A"
)

var ErrNoDevice = errors.New("no sensorslave device found")

// PortInfo describes a candidate USB serial port
type PortInfo struct {
	Name   string
	VID    string
	PID    string
	Serial string
}

// listPorts is replaced in tests
var listPorts = func() ([]*enumerator.PortDetails, error) {
	return enumerator.GetDetailedPortsList()
}

// FindDevices lists USB serial ports whose VID matches the RP2040.
// An empty pid matches any product.
func FindDevices(pid string) ([]PortInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	var found []PortInfo
	for _, p := range ports {
		if !p.IsUSB || !strings.EqualFold(p.VID, PicoVID) {
			continue
		}
		if pid != "" && !strings.EqualFold(p.PID, pid) {
			continue
		}
		found = append(found, PortInfo{Name: p.Name, VID: p.VID, PID: p.PID, Serial: p.SerialNumber})
	}
	return found, nil
}

// FindDevice returns the first matching port name
func FindDevice() (string, error) {
	found, err := FindDevices("")
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", ErrNoDevice
	}
	return found[0].Name, nil
}
