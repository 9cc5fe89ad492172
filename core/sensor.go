package core

// SensorMux routes each bundle to its own reader. Bundles without a reader
// return ErrNoSensor.
type SensorMux [16]SensorReader

func (m *SensorMux) ReadTicks(bundle, sensor uint8) (uint16, error) {
	if int(bundle) >= len(m) || m[bundle] == nil {
		return 0, ErrNoSensor
	}
	return m[bundle].ReadTicks(bundle, sensor)
}

// ADCSensorReader serves one bundle from ADC channels: sensor n reads
// Channels[n]. Samples are shifted right by Shift so they fit the bus
// value width.
type ADCSensorReader struct {
	Channels []ADCChannelID
	Shift    uint8
	drv      ADCDriver
}

// NewADCSensorReader configures every channel on the registered ADC driver.
func NewADCSensorReader(channels []ADCChannelID, shift uint8) (*ADCSensorReader, error) {
	drv := MustADC()
	for _, ch := range channels {
		if err := drv.ConfigureChannel(ch); err != nil {
			return nil, err
		}
	}
	return &ADCSensorReader{Channels: channels, Shift: shift, drv: drv}, nil
}

func (r *ADCSensorReader) ReadTicks(bundle, sensor uint8) (uint16, error) {
	if int(sensor) >= len(r.Channels) {
		return 0, ErrNoSensor
	}
	v, err := r.drv.ReadRaw(r.Channels[sensor])
	if err != nil {
		return 0, err
	}
	return uint16(v) >> r.Shift, nil
}
