package main

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/CK6170/Spectro-go/client"
	"github.com/CK6170/Spectro-go/protocol"
	"github.com/CK6170/Spectro-go/ui"
)

// drainWait is how long a script waits for replies after its last line.
const drainWait = 2 * time.Second

func printEvents(sess *client.Session, done chan<- struct{}) {
	defer close(done)
	for ev := range sess.Events() {
		switch ev.(type) {
		case client.ErrorEvent:
			ui.ErrorPrintf("%s\n", client.Describe(ev))
		case client.StatusEvent, client.DeleteEvent:
			ui.GreenPrintf("%s\n", client.Describe(ev))
		default:
			fmt.Fprintln(ui.Out, client.Describe(ev))
		}
	}
}

// runScript sends every stdin line as a command and prints the replies.
func runScript(sess *client.Session, in io.Reader) error {
	done := make(chan struct{})
	go printEvents(sess, done)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if err := sess.SendLine(line); err != nil {
			ui.WarningPrintf("%q: %v\n", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	select {
	case <-done:
	case <-time.After(drainWait):
	}
	return nil
}

// runKeys sends a command per key press; prompted commands read a payload
// line from the keyboard.
func runKeys(sess *client.Session) error {
	done := make(chan struct{})
	go printEvents(sess, done)

	keys := ui.StartKeyEvents()
	ui.DrainKeys()
	for _, b := range ui.Bindings {
		ui.DebugPrintf(true, "%c  %s\n", b.Key, b.Help)
	}
	ui.DebugPrintf(true, "i  settings, n  report, o  delete\n")

	for {
		select {
		case <-done:
			return nil
		case r, ok := <-keys:
			if !ok {
				return nil
			}
			if cmd, ok := ui.NeedsPayload(r); ok {
				ui.WarningPrintf("%s payload: ", cmd)
				payload := readKeyLine(keys)
				if err := sess.Send(cmd, payload); err != nil {
					return err
				}
				continue
			}
			cmd, ok := ui.CommandForKey(r)
			if !ok {
				continue
			}
			if err := sess.Send(cmd, ""); err != nil {
				return err
			}
			if cmd == protocol.Quit {
				return nil
			}
		}
	}
}

func readKeyLine(keys <-chan rune) string {
	var buf []rune
	for r := range keys {
		switch r {
		case '\n':
			fmt.Fprintln(ui.Out)
			return string(buf)
		case ui.KeyEsc:
			fmt.Fprintln(ui.Out)
			return ""
		case ui.KeyBackspace:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				fmt.Fprint(ui.Out, "\b \b")
			}
			continue
		}
		buf = append(buf, r)
		fmt.Fprint(ui.Out, string(r))
	}
	return string(buf)
}
