package main

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/num/asm"
	"github.com/nf/num/host"
	"github.com/nf/num/um"
)

type debugView struct {
	run *host.Runner

	log   *tview.TextView
	watch *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	mu   sync.Mutex
	syms symbols
	brk  *asm.Symbol
}

func newDebugView() *debugView {
	d := &debugView{
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		if cmd, arg, ok := strings.Cut(t, " "); ok {
			switch cmd {
			case "b", "break":
				for _, s := range d.symbols().withLabelPrefix(arg) {
					entries = append(entries, cmd+" "+s.Label)
				}
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := d.input.GetText()
		if cmd == "" {
			return
		}
		d.input.SetText("")
		if cmd == "exit" {
			d.app.Stop()
			return
		}
		if cmd, arg, ok := strings.Cut(cmd, " "); ok {
			switch cmd {
			case "b", "break":
				s, ok := d.symbols().resolve(arg)
				if !ok {
					log.Printf("invalid addr %q", arg)
					return
				}
				d.run.Debug("break", s.Addr)
				d.setBreak(&s)
				log.Printf("set break %.8x", s.Addr)
			default:
				log.Printf("unknown command %q", cmd)
			}
			return
		}
		switch cmd {
		case "b", "break":
			d.run.Debug("clear", 0)
			d.setBreak(nil)
			log.Print("cleared break")
		case "p", "pause":
			d.run.Debug("pause", 0)
		case "s", "step":
			d.run.Debug("step", 0)
		case "c", "cont":
			d.run.Debug("cont", 0)
		default:
			log.Printf("unknown command %q", cmd)
		}
	})
	return d
}

func (d *debugView) Run() error { return d.app.Run() }

func (d *debugView) symbols() symbols {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syms
}

func (d *debugView) setSymbols(s symbols) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.syms = s
}

func (d *debugView) breakSym() *asm.Symbol {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.brk
}

func (d *debugView) setBreak(s *asm.Symbol) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.brk = s
}

func (d *debugView) StateFunc(m *um.Machine, k host.StateKind) {
	var (
		watch = watchContent(d.breakSym(), m)
		state string
	)
	if k != host.ClearState {
		state = stateMsg(d.symbols(), m, k)
	}
	d.app.QueueUpdateDraw(func() {
		switch k {
		case host.ClearState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case host.BreakState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case host.PauseState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case host.HaltState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		if k != host.ClearState {
			d.state.SetText(state)
		}
	})
}

func stateMsg(syms symbols, m *um.Machine, k host.StateKind) string {
	var (
		pcSym string
		inst  = "???"
	)
	if s := syms.forAddr(m.PC); len(s) > 0 {
		pcSym = s[0].String() + " -> "
	}
	if m.PC < m.Pool.Len(0) {
		inst = um.Inst(m.Pool.Read(0, m.PC)).String()
	}
	kind := "       "
	switch k {
	case host.BreakState:
		kind = "[break]"
	case host.PauseState:
		kind = "[pause]"
	case host.HaltState:
		kind = "[HALT!]"
	}
	return fmt.Sprintf("%.8x %s %s%s", m.PC, kind, pcSym, inst)
}

func watchContent(brk *asm.Symbol, m *um.Machine) string {
	var b strings.Builder
	if brk != nil {
		fmt.Fprintf(&b, "%s [%.8x] brk!\n", brk.Label, brk.Addr)
	}
	for i, v := range m.Reg {
		fmt.Fprintf(&b, "r%d %.8x\n", i, v)
	}
	live, freed, words := m.Pool.Stats()
	fmt.Fprintf(&b, "segs: %d live %d free %d words", live, freed, words)
	return b.String()
}
