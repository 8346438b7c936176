package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/nf/num/host"
	"github.com/nf/num/um"
)

func devMode(debug bool, srcFile string) error {
	srcFile = filepath.Clean(srcFile)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(srcFile)); err != nil {
		return err
	}

	var (
		dbg   *debugView
		state host.StateFunc
	)
	if debug {
		dbg = newDebugView()
		state = dbg.StateFunc
	}
	runner := host.NewRunner(true, state)
	if debug {
		dbg.run = runner
		log.SetPrefix("")
		log.SetOutput(dbg.log)
		go func() {
			if err := dbg.Run(); err != nil {
				log.Fatalf("debug: %v", err)
			}
			log.SetOutput(os.Stderr)
			log.SetPrefix("num: ")
			runner.Debug("exit", 0)
		}()
	}

	progCh := make(chan []um.Word)
	go func() {
		started := false
		build := time.After(1 * time.Millisecond)
		for {
			select {
			case <-build:
				log.Printf("dev: build %s", filepath.Base(srcFile))
				prog, syms, err := loadFile(srcFile)
				if err != nil {
					log.Printf("dev: %v", err)
					break
				}
				if dbg != nil {
					dbg.setSymbols(syms)
				}
				if !started {
					log.Printf("dev: start")
					progCh <- prog
					started = true
				} else {
					log.Printf("dev: reset")
					runner.Swap(prog)
				}
			case ev := <-watcher.Event:
				if ev.Name == srcFile && !ev.IsAttrib() {
					build = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				log.Printf("dev: watcher: %v", err)
			}
		}
	}()
	code := runner.Run(<-progCh)
	return fmt.Errorf("dev: exit code: %d", code)
}
