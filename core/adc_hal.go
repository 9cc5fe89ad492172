package core

// ADCChannelID identifies an ADC input. On RP2040 0-3 are GP26-GP29 and 4
// is the die temperature sensor.
type ADCChannelID uint8

// ADCValue is a raw 12-bit sample.
type ADCValue uint16

const ADCMax ADCValue = 4095

// ADCDriver samples analog inputs for the sensor readers.
type ADCDriver interface {
	// ConfigureChannel puts the channel's pin in analog mode, or turns on
	// the temperature sensor for channel 4.
	ConfigureChannel(ch ADCChannelID) error
	ReadRaw(ch ADCChannelID) (ADCValue, error)
}

var adcDriver ADCDriver

// SetADCDriver registers the target's ADC. Passing nil unregisters it.
func SetADCDriver(d ADCDriver) {
	adcDriver = d
}

// MustADC returns the registered driver. Reading sensors without one is a
// wiring bug in the target.
func MustADC() ADCDriver {
	if adcDriver == nil {
		panic("adc: no driver registered")
	}
	return adcDriver
}
