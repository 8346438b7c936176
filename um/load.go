package um

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadProgram parses a program image: a sequence of 32-bit words
// encoded big-endian. The image must be a positive multiple of four
// bytes long.
func ReadProgram(r io.Reader) ([]Word, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("empty program")
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("program size %d is not a multiple of 4", len(b))
	}
	prog := make([]Word, len(b)/4)
	for i := range prog {
		prog[i] = Word(binary.BigEndian.Uint32(b[i*4:]))
	}
	return prog, nil
}
