package core

import (
	"errors"

	"sensorslave/protocol"
)

var (
	ErrBadBus      = errors.New("i2c slave: bus out of range")
	ErrBadAddress  = errors.New("i2c slave: address is not 7-bit")
	ErrBusBound    = errors.New("i2c slave: bus already bound")
	ErrBusNotBound = errors.New("i2c slave: bus not bound")
)

// slaveProtocol is the handler every bus is bound to. It writes the
// process-wide mailbox.
var slaveProtocol = NewSensorSelectProtocol(DefaultMailbox())

// Global framer for sending responses (set by main)
var globalFramer *protocol.Framer

// SetGlobalFramer sets the framer used by SendResponse
func SetGlobalFramer(f *protocol.Framer) {
	globalFramer = f
}

// SendResponse sends a registered response message using the global framer
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalFramer == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		// All responses are registered at init
		panic("Response not registered: " + responseName)
	}
	if err := globalFramer.SendCommand(cmd.ID, args); err != nil {
		DebugPrintln("[CMD] " + responseName + ": " + err.Error())
	}
}

// InitCoreCommands registers the link bootstrap commands.
// identify_response and identify must keep IDs 0 and 1.
func InitCoreCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s") // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify)

	RegisterCommand("get_clock", "", handleGetClock)
	RegisterCommand("get_uptime", "", handleGetUptime)
	RegisterResponse("clock", "clock=%u")
	RegisterResponse("uptime", "ticks=%u")

	RegisterConstant("CLOCK_FREQ", uint32(TimerFreq))
}

// InitI2CSlaveCommands registers the foreground accessors of the slave engine
func InitI2CSlaveCommands() {
	RegisterCommand("i2c_slave_init", "bus=%c address=%c", handleI2CSlaveInit)
	RegisterCommand("i2c_slave_deinit", "bus=%c", handleI2CSlaveDeinit)
	RegisterCommand("i2c_slave_is_read_required", "", handleIsReadRequired)
	RegisterCommand("i2c_slave_set_read_required", "read=%c", handleSetReadRequired)
	RegisterCommand("i2c_slave_set_value", "value=%hu", handleSetValue)
	RegisterCommand("i2c_slave_get_bundle", "", handleGetBundle)
	RegisterCommand("i2c_slave_get_sensor", "", handleGetSensor)
	RegisterCommand("i2c_slave_get_status", "", handleGetStatus)
	RegisterCommand("i2c_slave_dump_trace", "", handleDumpTrace)

	RegisterResponse("i2c_slave_read_required", "read_required=%c")
	RegisterResponse("i2c_slave_value", "value=%hu")
	RegisterResponse("i2c_slave_bundle", "bundle=%c")
	RegisterResponse("i2c_slave_sensor", "sensor=%c")
	RegisterResponse("i2c_slave_status", "bus_mask=%c read_required=%c bundle=%c sensor=%c value=%hu seq=%c")
	RegisterResponse("i2c_slave_trace", "type=%c bus=%c clock=%u v1=%u v2=%u")

	RegisterConstant("I2C_SLAVE_FREQ", uint32(I2CSlaveFreq))
	RegisterConstant("I2C_SLAVE_BUSES", I2CSlaveCount)
}

// handleIdentify returns a chunk of the data dictionary
// Format: identify offset=%u count=%c
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleGetClock(data *[]byte) error {
	clock := GetTime()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})
	return nil
}

func handleGetUptime(data *[]byte) error {
	ticks := GetUptime()
	SendResponse("uptime", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, ticks)
	})
	return nil
}

// decodeBus reads a bus argument and checks its range
func decodeBus(data *[]byte) (I2CBusID, error) {
	bus, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return 0, err
	}
	if bus >= I2CSlaveCount {
		return 0, ErrBadBus
	}
	return I2CBusID(bus), nil
}

// handleI2CSlaveInit binds a bus to the sensor-select protocol
// Format: i2c_slave_init bus=%c address=%c
func handleI2CSlaveInit(data *[]byte) error {
	bus, err := decodeBus(data)
	if err != nil {
		return err
	}
	addr, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if addr > 0x7F {
		return ErrBadAddress
	}
	if I2CSlaveBound(bus) {
		return ErrBusBound
	}
	if err := I2CSlaveInit(bus, I2CAddress(addr), slaveProtocol); err != nil {
		return err
	}
	sendStatus()
	return nil
}

// handleI2CSlaveDeinit releases a bus
// Format: i2c_slave_deinit bus=%c
func handleI2CSlaveDeinit(data *[]byte) error {
	bus, err := decodeBus(data)
	if err != nil {
		return err
	}
	if !I2CSlaveBound(bus) {
		return ErrBusNotBound
	}
	I2CSlaveDeinit(bus)
	sendStatus()
	return nil
}

func sendReadRequired(read bool) {
	SendResponse("i2c_slave_read_required", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, boolToUint(read))
	})
}

func handleIsReadRequired(data *[]byte) error {
	sendReadRequired(IsReadRequired())
	return nil
}

// Format: i2c_slave_set_read_required read=%c
func handleSetReadRequired(data *[]byte) error {
	read, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	sendReadRequired(SetReadRequired(read != 0))
	return nil
}

// Format: i2c_slave_set_value value=%hu
func handleSetValue(data *[]byte) error {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	stored := SetPendingValue(uint16(v))
	SendResponse("i2c_slave_value", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(stored))
	})
	return nil
}

func handleGetBundle(data *[]byte) error {
	bundle := GetSelectedBundle()
	SendResponse("i2c_slave_bundle", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(bundle))
	})
	return nil
}

func handleGetSensor(data *[]byte) error {
	sensor := GetSelectedSensor()
	SendResponse("i2c_slave_sensor", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(sensor))
	})
	return nil
}

func handleGetStatus(data *[]byte) error {
	sendStatus()
	return nil
}

func sendStatus() {
	snap := DefaultMailbox().Snapshot()
	mask := I2CSlaveBoundMask()
	SendResponse("i2c_slave_status", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(mask))
		protocol.EncodeVLQUint(output, boolToUint(snap.ReadRequired))
		protocol.EncodeVLQUint(output, uint32(snap.Bundle))
		protocol.EncodeVLQUint(output, uint32(snap.Sensor))
		protocol.EncodeVLQUint(output, uint32(snap.Value))
		protocol.EncodeVLQUint(output, uint32(snap.Seq))
	})
}

// handleDumpTrace sends the trace ring, oldest first
func handleDumpTrace(data *[]byte) error {
	for _, evt := range TraceEvents() {
		evt := evt
		SendResponse("i2c_slave_trace", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(evt.EventType))
			protocol.EncodeVLQUint(output, uint32(evt.Bus))
			protocol.EncodeVLQUint(output, evt.Clock)
			protocol.EncodeVLQUint(output, evt.Value1)
			protocol.EncodeVLQUint(output, evt.Value2)
		})
	}
	return nil
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
