// Package fakebus implements an in-memory i2cbus.Bus that records every transaction.
package fakebus

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind of a recorded transaction.
type Kind int

const (
	Select Kind = iota
	Write
	Read
)

// Tx is one recorded transaction.
type Tx struct {
	Kind  Kind
	Addr  uint16
	Reg   byte
	Value byte
}

func (t Tx) String() string {
	switch t.Kind {
	case Select:
		return fmt.Sprintf("select 0x%02X", t.Addr)
	case Write:
		return fmt.Sprintf("0x%02X: write 0x%02X=0x%02X", t.Addr, t.Reg, t.Value)
	default:
		return fmt.Sprintf("0x%02X: read 0x%02X=0x%02X", t.Addr, t.Reg, t.Value)
	}
}

// Bus is a fake bus. Registers of every device start at zero unless preset in Regs.
type Bus struct {
	Log      []Tx
	Regs     map[uint16]map[byte]byte
	Selected uint16
	Closed   bool

	// Missing devices fail selection.
	Missing map[uint16]bool
	// FailWrite, when set, is consulted before each write.
	FailWrite func(addr uint16, reg byte) bool
	// FailRead, when set, is consulted before each read.
	FailRead func(addr uint16, reg byte) bool
}

// New returns an empty fake bus.
func New() *Bus {
	return &Bus{
		Regs:    map[uint16]map[byte]byte{},
		Missing: map[uint16]bool{},
	}
}

func (b *Bus) SelectDevice(addr uint16) error {
	if b.Missing[addr] {
		return errors.Errorf("no device at 0x%02X", addr)
	}
	b.Selected = addr
	b.Log = append(b.Log, Tx{Kind: Select, Addr: addr})
	return nil
}

func (b *Bus) WriteRegister(reg, value byte) error {
	if b.FailWrite != nil && b.FailWrite(b.Selected, reg) {
		return errors.Errorf("write 0x%02X rejected", reg)
	}
	if b.Regs[b.Selected] == nil {
		b.Regs[b.Selected] = map[byte]byte{}
	}
	b.Regs[b.Selected][reg] = value
	b.Log = append(b.Log, Tx{Kind: Write, Addr: b.Selected, Reg: reg, Value: value})
	return nil
}

func (b *Bus) ReadRegister(reg byte) (byte, error) {
	if b.FailRead != nil && b.FailRead(b.Selected, reg) {
		return 0, errors.Errorf("read 0x%02X rejected", reg)
	}
	v := b.Regs[b.Selected][reg]
	b.Log = append(b.Log, Tx{Kind: Read, Addr: b.Selected, Reg: reg, Value: v})
	return v, nil
}

func (b *Bus) Close() error {
	b.Closed = true
	return nil
}

// Writes returns the recorded writes in order.
func (b *Bus) Writes() []Tx {
	return b.filter(Write)
}

// Selects returns the recorded device selections in order.
func (b *Bus) Selects() []Tx {
	return b.filter(Select)
}

// Reg returns the current value of a register on addr.
func (b *Bus) Reg(addr uint16, reg byte) byte {
	return b.Regs[addr][reg]
}

// Reset forgets the transaction log but keeps register contents.
func (b *Bus) Reset() {
	b.Log = nil
}

func (b *Bus) filter(k Kind) []Tx {
	var out []Tx
	for _, t := range b.Log {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}
