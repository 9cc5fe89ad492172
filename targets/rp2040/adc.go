//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"

	"sensorslave/core"
)

// Sensor bundles served by this board
const (
	bundleADC    = 0 // sensors 0-3: GP26-GP29
	bundleSystem = 1 // sensor 0: die temperature
)

const tempChannel = 4

// RpAdcDriver implements core.ADCDriver using TinyGo's machine.ADC.
type RpAdcDriver struct {
	channels [4]*machine.ADC
}

// NewRPAdcDriver powers up the ADC block.
func NewRPAdcDriver() *RpAdcDriver {
	machine.InitADC()
	return &RpAdcDriver{}
}

// rawInternalTemp returns the 12-bit raw ADC value from the internal temp sensor (0-4095).
func rawInternalTemp() uint16 {
	rp.ADC.CS.SetBits(rp.ADC_CS_TS_EN)
	rp.ADC.CS.ReplaceBits(
		uint32(tempChannel)<<rp.ADC_CS_AINSEL_Pos,
		rp.ADC_CS_AINSEL_Msk,
		0,
	)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}
	return uint16(rp.ADC.RESULT.Get())
}

// ConfigureChannel sets up a channel (pin mux, etc.).
func (d *RpAdcDriver) ConfigureChannel(ch core.ADCChannelID) error {
	if ch == tempChannel {
		return nil
	}
	if int(ch) >= len(d.channels) {
		return errors.New("unsupported ADC channel")
	}
	if d.channels[ch] != nil {
		return nil
	}
	pins := [4]machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3}
	adc := &machine.ADC{Pin: pins[ch]}
	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.channels[ch] = adc
	return nil
}

// ReadRaw returns a 12-bit sample. Runs in the foreground only.
func (d *RpAdcDriver) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if ch == tempChannel {
		return core.ADCValue(rawInternalTemp()), nil
	}
	if int(ch) >= len(d.channels) || d.channels[ch] == nil {
		return 0, errors.New("ADC channel not configured")
	}
	// machine.ADC.Get is scaled to 16 bits
	return core.ADCValue(d.channels[ch].Get() >> 4), nil
}

// newSensorReader maps the board bundles onto the ADC.
func newSensorReader() (core.SensorReader, error) {
	core.SetADCDriver(NewRPAdcDriver())

	// 8-bit values: only two hex digits cross the bus
	external, err := core.NewADCSensorReader([]core.ADCChannelID{0, 1, 2, 3}, 4)
	if err != nil {
		return nil, err
	}
	system, err := core.NewADCSensorReader([]core.ADCChannelID{tempChannel}, 4)
	if err != nil {
		return nil, err
	}

	mux := &core.SensorMux{}
	mux[bundleADC] = external
	mux[bundleSystem] = system
	return mux, nil
}
