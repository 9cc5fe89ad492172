package core

import "errors"

// SensorReader produces the value served for a bundle/sensor selection.
// It runs in the foreground and may take as long as the sensor needs.
type SensorReader interface {
	ReadTicks(bundle, sensor uint8) (uint16, error)
}

// SensorReaderFunc adapts a plain function to SensorReader.
type SensorReaderFunc func(bundle, sensor uint8) (uint16, error)

func (f SensorReaderFunc) ReadTicks(bundle, sensor uint8) (uint16, error) {
	return f(bundle, sensor)
}

// DefaultSensorPollInterval is one millisecond of timer ticks.
var DefaultSensorPollInterval = TimerFromUS(1000)

// ErrNoSensor is returned by readers for selections they do not serve.
var ErrNoSensor = errors.New("no sensor at selection")

// SensorService is the foreground consumer of the mailbox. Each run it
// checks read-required, takes a reading for the selection and publishes it.
type SensorService struct {
	Timer    Timer
	Interval uint32 // timer ticks between runs

	mb     *Mailbox
	reader SensorReader

	Serviced uint32
	Stale    uint32
	Errors   uint32
	LastErr  error
}

// NewSensorService creates a service for mb (nil selects DefaultMailbox).
func NewSensorService(mb *Mailbox, reader SensorReader, interval uint32) *SensorService {
	if mb == nil {
		mb = DefaultMailbox()
	}
	if interval == 0 {
		interval = DefaultSensorPollInterval
	}
	s := &SensorService{
		Interval: interval,
		mb:       mb,
		reader:   reader,
	}
	s.Timer.Handler = s.timerEvent
	return s
}

// Start schedules the first run one interval from now.
func (s *SensorService) Start() {
	s.Timer.WakeTime = GetTime() + s.Interval
	ScheduleTimer(&s.Timer)
}

// Stop removes the service from the schedule.
func (s *SensorService) Stop() {
	CancelTimer(&s.Timer)
}

func (s *SensorService) timerEvent(t *Timer) uint8 {
	s.Poll()
	t.WakeTime += s.Interval
	if timerBefore(t.WakeTime, GetTime()) {
		// Fell behind; skip the missed runs.
		t.WakeTime = GetTime() + s.Interval
	}
	return SF_RESCHEDULE
}

// Poll services one pending selection, if any. It reports whether a value
// was published.
func (s *SensorService) Poll() bool {
	snap := s.mb.Snapshot()
	if !snap.ReadRequired {
		return false
	}
	sel := uint32(snap.Bundle)<<4 | uint32(snap.Sensor)

	ticks, err := s.reader.ReadTicks(snap.Bundle, snap.Sensor)
	if err != nil {
		// Leave read-required set; the next run retries.
		s.Errors++
		s.LastErr = err
		RecordTrace(EvtPollError, 0, sel, 0)
		DebugAsync("[I2C] sensor read failed sel=" + itoa(int(sel)) + ": " + err.Error())
		return false
	}

	if !s.mb.Complete(snap.Seq, ticks) {
		// A newer selection arrived; it is picked up on the next run.
		s.Stale++
		RecordTrace(EvtPollStale, 0, sel, uint32(ticks))
		return false
	}
	s.Serviced++
	RecordTrace(EvtPollService, 0, sel, uint32(ticks))
	return true
}
