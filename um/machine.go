// Package um provides an implementation of a Universal Machine CPU,
// called Machine, that can be used to execute Universal Machine
// bytecode: eight 32-bit registers, a pool of word segments, and
// fourteen operations including self-modifying program loads.
package um

import (
	"errors"
	"fmt"
)

// Word is the machine's cell: an unsigned 32-bit integer.
// All arithmetic wraps modulo 2^32.
type Word uint32

// Console provides the byte streams used by the in and out operations.
type Console interface {
	// ReadByte returns the next input byte. Any error is treated as
	// end of stream, which the machine reports to the program as an
	// all-ones word.
	ReadByte() (byte, error)

	// WriteByte emits one output byte. A write error is fatal.
	WriteByte(byte) error
}

// Machine is an implementation of a Universal Machine CPU.
type Machine struct {
	Reg  [8]Word
	PC   Word
	Pool *Pool
	Con  Console
}

// NewMachine returns a machine with prog as its program segment,
// all registers zero, and the program counter at zero.
func NewMachine(prog []Word, con Console) *Machine {
	return &Machine{Pool: NewPool(prog), Con: con}
}

// ErrHalt is returned by Step when the program executes halt.
var ErrHalt = errors.New("halt")

// Step executes the instruction at m.PC. It returns ErrHalt if that
// instruction is halt, and otherwise only returns a non-nil error if
// the instruction violates the machine's contract.
func (m *Machine) Step() (err error) {
	var (
		inst Inst
		opPC = m.PC
	)
	defer func() {
		if e := recover(); e != nil {
			if f, ok := e.(fault); ok {
				err = HaltError{
					HaltCode: f.code,
					Op:       inst.Op(),
					Addr:     opPC,
					ID:       f.id,
					Off:      f.off,
				}
			} else {
				panic(e)
			}
		}
	}()

	if m.PC >= m.Pool.Len(0) {
		panic(fault{code: PCRange, off: m.PC})
	}
	inst = Inst(m.Pool.Read(0, m.PC))

	if inst.Op().Special() {
		reg, val := inst.Lit()
		m.Reg[reg] = val
		m.PC++
		return nil
	}

	a, b, c := inst.A(), inst.B(), inst.C()
	switch inst.Op() {
	case CMOV:
		if m.Reg[c] != 0 {
			m.Reg[a] = m.Reg[b]
		}
	case INDEX:
		m.Reg[a] = m.Pool.Read(m.Reg[b], m.Reg[c])
	case AMEND:
		m.Pool.Write(m.Reg[a], m.Reg[b], m.Reg[c])
	case ADD:
		m.Reg[a] = m.Reg[b] + m.Reg[c]
	case MUL:
		m.Reg[a] = m.Reg[b] * m.Reg[c]
	case DIV:
		if m.Reg[c] == 0 {
			panic(fault{code: DivideByZero})
		}
		m.Reg[a] = m.Reg[b] / m.Reg[c]
	case NAND:
		m.Reg[a] = ^(m.Reg[b] & m.Reg[c])
	case HALT:
		return ErrHalt
	case ALLOC:
		m.Reg[b] = m.Pool.Alloc(m.Reg[c])
	case FREE:
		m.Pool.Free(m.Reg[c])
	case OUT:
		v := m.Reg[c]
		if v > 255 {
			panic(fault{code: OutputRange, off: v})
		}
		if werr := m.Con.WriteByte(byte(v)); werr != nil {
			panic(fault{code: OutputFailure})
		}
	case IN:
		if v, rerr := m.Con.ReadByte(); rerr != nil {
			m.Reg[c] = ^Word(0)
		} else {
			m.Reg[c] = Word(v)
		}
	case LOAD:
		m.Pool.ReplaceProgram(m.Reg[b])
		m.PC = m.Reg[c]
		return nil
	default:
		panic(fault{code: BadOpcode})
	}
	m.PC++
	return nil
}

// Run executes instructions from m.PC until the program halts or
// faults. It returns nil on a normal halt.
func (m *Machine) Run() error {
	for {
		switch err := m.Step(); err {
		case nil:
		case ErrHalt:
			return nil
		default:
			return err
		}
	}
}

// fault is the panic value used inside the machine for contract
// violations; Step converts it to a HaltError.
type fault struct {
	code    HaltCode
	id, off Word
}

// HaltError is returned by Step if execution is halted by a
// violation of the machine's contract.
type HaltError struct {
	HaltCode
	Op      Op
	Addr    Word
	ID, Off Word
}

func (e HaltError) Error() string {
	switch e.HaltCode {
	case PCRange:
		return fmt.Sprintf("program counter %.8x out of range", e.Off)
	case InactiveSegment, FreeInactive:
		return fmt.Sprintf("%s %d executing %s at %.8x", e.HaltCode, e.ID, e.Op, e.Addr)
	case SegmentBounds:
		return fmt.Sprintf("%s (segment %d offset %d) executing %s at %.8x",
			e.HaltCode, e.ID, e.Off, e.Op, e.Addr)
	case OutputRange:
		return fmt.Sprintf("%s (%#x) executing %s at %.8x", e.HaltCode, e.Off, e.Op, e.Addr)
	}
	return fmt.Sprintf("%s executing %s at %.8x", e.HaltCode, e.Op, e.Addr)
}

// HaltCode signifies the type of contract violation that halted
// execution.
type HaltCode byte

const (
	PCRange HaltCode = iota
	BadOpcode
	InactiveSegment
	SegmentBounds
	FreeProgram
	FreeInactive
	AllocFailed
	DivideByZero
	OutputRange
	OutputFailure
)

func (c HaltCode) String() string {
	if s, ok := map[HaltCode]string{
		PCRange:         "program counter out of range",
		BadOpcode:       "illegal opcode",
		InactiveSegment: "inactive segment",
		SegmentBounds:   "segment access out of bounds",
		FreeProgram:     "free of the program segment",
		FreeInactive:    "free of inactive segment",
		AllocFailed:     "out of memory",
		DivideByZero:    "division by zero",
		OutputRange:     "output value out of range",
		OutputFailure:   "output write failed",
	}[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown (%d)", byte(c))
}
