package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nf/num/asm"
	"github.com/nf/num/um"
)

// symbols is an address-ordered list of assembler labels.
type symbols []asm.Symbol

func (s symbols) forAddr(addr um.Word) (ss []asm.Symbol) {
	i := sort.Search(len(s), func(i int) bool { return s[i].Addr >= addr })
	for ; i < len(s); i++ {
		if s[i].Addr == addr {
			ss = append(ss, s[i])
		}
	}
	return ss
}

func (s symbols) withLabelPrefix(p string) (ss []asm.Symbol) {
	for _, sym := range s {
		if strings.HasPrefix(sym.Label, p) {
			ss = append(ss, sym)
		}
	}
	return ss
}

// resolve maps a label or a hexadecimal address to a symbol.
func (s symbols) resolve(arg string) (asm.Symbol, bool) {
	for _, sym := range s {
		if sym.Label == arg {
			return sym, true
		}
	}
	if addr, err := strconv.ParseUint(arg, 16, 32); err == nil {
		return asm.Symbol{Addr: um.Word(addr), Label: fmt.Sprintf("%.8x", addr)}, true
	}
	return asm.Symbol{}, false
}
