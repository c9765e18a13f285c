// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package bus implements the single shared data bus of the SAP-1.
//
// The Arbiter holds a registry of named sources (components that can drive
// the bus) and named sinks (components that can latch from the bus). Each
// tick exactly one source, or none, drives the bus, and any subset of sinks
// has its write-enable line asserted. The Arbiter latches nothing itself;
// sinks apply the value on their own commit.
package bus

import (
	"math/bits"
)

// Source is a component that can drive the bus. Output must be a pure
// function of the component's latched state and combinational inputs.
type Source interface {
	Output() uint8
}

// Sink is a component that can latch the bus. Latch sets the sink's
// write-enable line and data input for the current tick; the value is
// applied when the sink commits.
type Sink interface {
	Latch(enable bool, value uint8)
}

// Port is a handle into the source or sink registry.
type Port int

// PORT_NONE selects no driver.
const PORT_NONE = Port(-1)

// Mask is a set of sink ports.
type Mask uint32

// MAX_SINKS is the largest number of sinks a Mask can address.
const MAX_SINKS = 32

// Has returns true if the port is a member of the mask.
func (mask Mask) Has(port Port) bool {
	return port >= 0 && port < MAX_SINKS && (mask&(1<<port)) != 0
}

// Count returns the number of ports in the mask.
func (mask Mask) Count() int {
	return bits.OnesCount32(uint32(mask))
}

type sourcePort struct {
	name   string
	source Source
}

type sinkPort struct {
	name string
	sink Sink
}

// Arbiter connects one driver per tick to any number of sinks.
type Arbiter struct {
	Width int // Bus width in bits.

	sources []sourcePort
	sinks   []sinkPort

	driver Port
	dests  Mask
}

// NewArbiter creates an idle bus arbiter of the given width.
func NewArbiter(width int) (ab *Arbiter, err error) {
	if width < 1 || width > 8 {
		err = ErrWidth
		return
	}

	ab = &Arbiter{
		Width:  width,
		driver: PORT_NONE,
	}

	return
}

// AddSource registers a named bus driver.
func (ab *Arbiter) AddSource(name string, source Source) (port Port, err error) {
	for _, sp := range ab.sources {
		if sp.name == name {
			err = &ErrPort{Name: name, Err: ErrPortDuplicate}
			return
		}
	}

	port = Port(len(ab.sources))
	ab.sources = append(ab.sources, sourcePort{name: name, source: source})

	return
}

// AddSink registers a named bus destination.
func (ab *Arbiter) AddSink(name string, sink Sink) (port Port, err error) {
	for _, sp := range ab.sinks {
		if sp.name == name {
			err = &ErrPort{Name: name, Err: ErrPortDuplicate}
			return
		}
	}

	if len(ab.sinks) == MAX_SINKS {
		err = &ErrPort{Name: name, Err: ErrPortLimit}
		return
	}

	port = Port(len(ab.sinks))
	ab.sinks = append(ab.sinks, sinkPort{name: name, sink: sink})

	return
}

// SourcePort resolves a source name. The empty name resolves to PORT_NONE.
func (ab *Arbiter) SourcePort(name string) (port Port, err error) {
	if len(name) == 0 {
		port = PORT_NONE
		return
	}

	for n, sp := range ab.sources {
		if sp.name == name {
			port = Port(n)
			return
		}
	}

	port = PORT_NONE
	err = &ErrPort{Name: name, Err: ErrPortUnknown}
	return
}

// SinkMask resolves a set of sink names.
func (ab *Arbiter) SinkMask(names ...string) (mask Mask, err error) {
names:
	for _, name := range names {
		for n, sp := range ab.sinks {
			if sp.name == name {
				mask |= 1 << n
				continue names
			}
		}
		mask = 0
		err = &ErrPort{Name: name, Err: ErrPortUnknown}
		return
	}

	return
}

// SelectDriver selects the named source as the bus driver.
func (ab *Arbiter) SelectDriver(name string) (err error) {
	port, err := ab.SourcePort(name)
	if err != nil {
		return
	}

	ab.Drive(port)
	return
}

// SelectSinks selects the named destinations. No names clears all
// destinations.
func (ab *Arbiter) SelectSinks(names ...string) (err error) {
	mask, err := ab.SinkMask(names...)
	if err != nil {
		return
	}

	ab.Deliver(mask)
	return
}

// Idle deselects the driver and all destinations.
func (ab *Arbiter) Idle() {
	ab.driver = PORT_NONE
	ab.dests = 0
}

// Drive selects a resolved source port.
func (ab *Arbiter) Drive(port Port) {
	if port < 0 || int(port) >= len(ab.sources) {
		port = PORT_NONE
	}
	ab.driver = port
}

// Deliver selects a resolved destination mask.
func (ab *Arbiter) Deliver(mask Mask) {
	ab.dests = mask & Mask((uint64(1)<<len(ab.sinks))-1)
}

// Read returns the value the selected driver presents on the bus.
// An idle bus reads as zero.
func (ab *Arbiter) Read() (value uint8) {
	return ab.Peek(ab.driver)
}

// Peek returns the value a source port would present on the bus, without
// selecting it. PORT_NONE reads as zero.
func (ab *Arbiter) Peek(port Port) (value uint8) {
	if port < 0 || int(port) >= len(ab.sources) {
		return
	}

	value = ab.sources[port].source.Output()
	value &= uint8((1 << ab.Width) - 1)

	return
}

// Propagate presents the bus value to every sink, asserting the
// write-enable line of the selected destinations only.
func (ab *Arbiter) Propagate() {
	value := ab.Read()
	for n, sp := range ab.sinks {
		sp.sink.Latch(ab.dests.Has(Port(n)), value)
	}
}

// DriverPort returns the selected source port.
func (ab *Arbiter) DriverPort() Port {
	return ab.driver
}

// SinkPorts returns the selected destination mask.
func (ab *Arbiter) SinkPorts() Mask {
	return ab.dests
}

// Driver returns the name of the selected source, or the empty string.
func (ab *Arbiter) Driver() (name string) {
	return ab.SourceName(ab.driver)
}

// Sinks returns the names of the selected destinations, in registry order.
func (ab *Arbiter) Sinks() (names []string) {
	return ab.MaskNames(ab.dests)
}

// SourceName returns the name of a source port, or the empty string.
func (ab *Arbiter) SourceName(port Port) (name string) {
	if port >= 0 && int(port) < len(ab.sources) {
		name = ab.sources[port].name
	}
	return
}

// MaskNames returns the names of the sinks in a mask, in registry order.
func (ab *Arbiter) MaskNames(mask Mask) (names []string) {
	for n, sp := range ab.sinks {
		if mask.Has(Port(n)) {
			names = append(names, sp.name)
		}
	}
	return
}

// SourceNames returns the registered source names, in registry order.
func (ab *Arbiter) SourceNames() (names []string) {
	for _, sp := range ab.sources {
		names = append(names, sp.name)
	}
	return
}

// SinkNames returns the registered sink names, in registry order.
func (ab *Arbiter) SinkNames() (names []string) {
	for _, sp := range ab.sinks {
		names = append(names, sp.name)
	}
	return
}
