// Package asm assembles Universal Machine programs from a small
// textual assembly language. Each line holds one instruction or word
// directive; labels name addresses and may be used wherever a value is
// expected. Grammar is defined as Go structs with Participle tags.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/nf/num/um"
)

// Symbol is a label and the address it names.
type Symbol struct {
	Addr  um.Word
	Label string
}

func (s Symbol) String() string { return fmt.Sprintf("%s (%.8x)", s.Label, s.Addr) }

type file struct {
	Lines []*line `(@@ | EOL)*`
}

type line struct {
	Label *label `  @@`
	Stmt  *stmt  `| @@`
}

type label struct {
	Name string `@Ident ":"`
}

type stmt struct {
	Pos  lexer.Position
	Name string `@Ident`
	Args []*arg `@@*`
}

type arg struct {
	Pos lexer.Position
	Reg *string `  @Register`
	Num *string `| @Number`
	Sym *string `| @Ident`
}

var asmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "EOL", Pattern: `\n+`},
	{Name: "Whitespace", Pattern: `[ \t\r,]+`},
	{Name: "Register", Pattern: `r[0-7]\b`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_.][A-Za-z0-9_.]*`},
	{Name: "Colon", Pattern: `:`},
})

var parser = participle.MustBuild[file](
	participle.Lexer(asmLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

var ops = map[string]um.Op{
	"cmov":  um.CMOV,
	"index": um.INDEX,
	"amend": um.AMEND,
	"add":   um.ADD,
	"mul":   um.MUL,
	"div":   um.DIV,
	"nand":  um.NAND,
	"halt":  um.HALT,
	"alloc": um.ALLOC,
	"free":  um.FREE,
	"out":   um.OUT,
	"in":    um.IN,
	"load":  um.LOAD,
}

// Assemble translates source into a program image and its symbol
// table. Every instruction and word directive occupies one word.
func Assemble(source string) ([]um.Word, []Symbol, error) {
	f, err := parser.ParseString("", source)
	if err != nil {
		return nil, nil, err
	}

	labels := make(map[string]um.Word)
	var (
		addr um.Word
		syms []Symbol
	)
	for _, l := range f.Lines {
		if l.Label != nil {
			if _, ok := labels[l.Label.Name]; ok {
				return nil, nil, fmt.Errorf("duplicate label %q", l.Label.Name)
			}
			labels[l.Label.Name] = addr
			syms = append(syms, Symbol{addr, l.Label.Name})
			continue
		}
		addr++
	}

	prog := make([]um.Word, 0, addr)
	for _, l := range f.Lines {
		if l.Label != nil {
			continue
		}
		w, err := encode(l.Stmt, labels)
		if err != nil {
			return nil, nil, err
		}
		prog = append(prog, w)
	}
	return prog, syms, nil
}

func encode(s *stmt, labels map[string]um.Word) (um.Word, error) {
	name := strings.ToLower(s.Name)
	bad := func(want string) error {
		return fmt.Errorf("%s: %s takes %s", s.Pos, name, want)
	}
	switch name {
	case "cmov", "index", "amend", "add", "mul", "div", "nand":
		if len(s.Args) != 3 {
			return 0, bad("three registers")
		}
		a, err := regArg(s.Args[0])
		if err != nil {
			return 0, err
		}
		b, err := regArg(s.Args[1])
		if err != nil {
			return 0, err
		}
		c, err := regArg(s.Args[2])
		if err != nil {
			return 0, err
		}
		return um.Encode(ops[name], a, b, c), nil
	case "halt":
		if len(s.Args) != 0 {
			return 0, bad("no operands")
		}
		return um.Encode(um.HALT, 0, 0, 0), nil
	case "alloc", "load":
		if len(s.Args) != 2 {
			return 0, bad("two registers")
		}
		b, err := regArg(s.Args[0])
		if err != nil {
			return 0, err
		}
		c, err := regArg(s.Args[1])
		if err != nil {
			return 0, err
		}
		return um.Encode(ops[name], 0, b, c), nil
	case "free", "out", "in":
		if len(s.Args) != 1 {
			return 0, bad("one register")
		}
		c, err := regArg(s.Args[0])
		if err != nil {
			return 0, err
		}
		return um.Encode(ops[name], 0, 0, c), nil
	case "lit":
		if len(s.Args) != 2 {
			return 0, bad("a register and a value")
		}
		reg, err := regArg(s.Args[0])
		if err != nil {
			return 0, err
		}
		val, err := valArg(s.Args[1], labels)
		if err != nil {
			return 0, err
		}
		if val > 0x1ffffff {
			return 0, fmt.Errorf("%s: value %#x does not fit in 25 bits", s.Args[1].Pos, val)
		}
		return um.EncodeLit(reg, val), nil
	case "word":
		if len(s.Args) != 1 {
			return 0, bad("one value")
		}
		return valArg(s.Args[0], labels)
	}
	return 0, fmt.Errorf("%s: unknown instruction %q", s.Pos, s.Name)
}

func regArg(a *arg) (int, error) {
	if a.Reg == nil {
		return 0, fmt.Errorf("%s: want a register (r0..r7)", a.Pos)
	}
	n, err := strconv.Atoi((*a.Reg)[1:])
	if err != nil {
		return 0, fmt.Errorf("%s: bad register %q", a.Pos, *a.Reg)
	}
	return n, nil
}

func valArg(a *arg, labels map[string]um.Word) (um.Word, error) {
	switch {
	case a.Num != nil:
		n, err := strconv.ParseUint(*a.Num, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("%s: bad value %q", a.Pos, *a.Num)
		}
		return um.Word(n), nil
	case a.Sym != nil:
		addr, ok := labels[*a.Sym]
		if !ok {
			return 0, fmt.Errorf("%s: undefined label %q", a.Pos, *a.Sym)
		}
		return addr, nil
	}
	return 0, fmt.Errorf("%s: want a value or label", a.Pos)
}
