package host

import (
	"log"
	"os"

	"github.com/nf/num/um"
)

// StateKind tells a StateFunc why the runner stopped or resumed the
// machine.
type StateKind int

const (
	ClearState StateKind = iota // resumed; displayed state is stale
	PauseState                  // stopped by pause or step
	BreakState                  // stopped at a breakpoint
	HaltState                   // stopped by halt or a fault
)

// StateFunc receives the machine each time the runner stops or resumes
// it. The machine must not be touched after the function returns.
type StateFunc func(*um.Machine, StateKind)

// Runner executes programs on a Universal Machine, one at a time.
// In dev mode a fresh program may be swapped in at any point, and the
// debugger commands become available.
type Runner struct {
	dev   bool
	state StateFunc

	swap chan []um.Word
	cmd  chan command
}

type command struct {
	name string
	addr um.Word
}

// NewRunner returns a Runner. The state function may be nil.
func NewRunner(devMode bool, state StateFunc) *Runner {
	r := &Runner{dev: devMode, state: state}
	if devMode {
		r.swap = make(chan []um.Word)
		// Buffered so the debugger UI never blocks on the run loop
		// while the run loop is reporting state to the UI.
		r.cmd = make(chan command, 16)
	}
	return r
}

// Swap stops the running program, if any, and starts prog from the
// beginning with fresh machine state.
func (r *Runner) Swap(prog []um.Word) {
	if !r.dev {
		panic("Swap called while not running in dev mode")
	}
	r.swap <- prog
}

// Debug issues a debugger command: "pause", "step", "cont", "break"
// (with an address), "clear", or "exit".
func (r *Runner) Debug(cmd string, addr um.Word) {
	if !r.dev {
		panic("Debug called while not running in dev mode")
	}
	r.cmd <- command{cmd, addr}
}

// Run executes prog until it halts or faults, writing any diagnostic
// to the log, and returns the process exit code. In dev mode Run keeps
// serving swaps and debugger commands until an "exit" command arrives.
func (r *Runner) Run(prog []um.Word) int {
	con := NewConsole(os.Stdin, os.Stdout)
	if !r.dev {
		m := um.NewMachine(prog, con)
		if err := m.Run(); err != nil {
			log.Printf("um: %v", err)
			return 1
		}
		return 0
	}

	var (
		m       = um.NewMachine(prog, con)
		code    int
		brk     um.Word
		hasBrk  bool
		paused  bool
		stopped bool
		skipBrk bool // executing the instruction at the breakpoint
	)
	step := func() {
		switch err := m.Step(); err {
		case nil:
		case um.ErrHalt:
			stopped = true
			log.Print("um: exit status 0")
			r.report(m, HaltState)
		default:
			stopped, code = true, 1
			log.Printf("um: %v", err)
			r.report(m, HaltState)
		}
	}
	for {
		if stopped || paused {
			select {
			case prog := <-r.swap:
				m = um.NewMachine(prog, con)
				code, paused, stopped, skipBrk = 0, false, false, false
				r.report(m, ClearState)
			case c := <-r.cmd:
				switch c.name {
				case "exit":
					return code
				case "step":
					if !stopped {
						step()
						if !stopped {
							r.report(m, PauseState)
						}
					}
				case "cont":
					paused, skipBrk = false, true
					r.report(m, ClearState)
				case "break":
					brk, hasBrk = c.addr, true
				case "clear":
					hasBrk = false
				}
			}
			continue
		}
		select {
		case prog := <-r.swap:
			m = um.NewMachine(prog, con)
			code, skipBrk = 0, false
			r.report(m, ClearState)
			continue
		case c := <-r.cmd:
			switch c.name {
			case "exit":
				return code
			case "pause", "step":
				paused = true
				r.report(m, PauseState)
			case "break":
				brk, hasBrk = c.addr, true
			case "clear":
				hasBrk = false
			}
			continue
		default:
		}
		if hasBrk && m.PC == brk && !skipBrk {
			paused = true
			r.report(m, BreakState)
			continue
		}
		skipBrk = false
		step()
	}
}

func (r *Runner) report(m *um.Machine, k StateKind) {
	if r.state != nil {
		r.state(m, k)
	}
}
