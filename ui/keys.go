package ui

import (
	"sync"

	"github.com/eiannone/keyboard"

	"github.com/CK6170/Spectro-go/protocol"
)

// Special keys; Ctrl+C arrives as 'q'.
const (
	KeyEsc       rune = 27
	KeyBackspace rune = '\b'
)

var (
	keyCh     chan rune
	startOnce sync.Once
)

// StartKeyEvents returns a channel that emits single-key runes read without
// Enter. The channel closes when the keyboard goes away.
func StartKeyEvents() chan rune {
	startOnce.Do(func() {
		keyCh = make(chan rune, 64)
		if err := keyboard.Open(); err != nil {
			// no keyboard; the channel never emits
			return
		}
		go func() {
			defer keyboard.Close()
			for {
				char, key, err := keyboard.GetKey()
				if err != nil {
					close(keyCh)
					return
				}
				var r rune
				switch {
				case key == 0:
					r = char
				case key == keyboard.KeyEsc:
					r = KeyEsc
				case key == keyboard.KeyCtrlC:
					r = rune(protocol.Quit)
				case key == keyboard.KeyEnter:
					r = '\n'
				case key == keyboard.KeySpace:
					r = ' '
				case key == keyboard.KeyBackspace || key == keyboard.KeyBackspace2:
					r = KeyBackspace
				default:
					continue
				}
				select {
				case keyCh <- r:
				default:
				}
			}
		}()
	})
	return keyCh
}

// DrainKeys consumes any immediately available keys to avoid accidental triggers.
func DrainKeys() {
	ch := StartKeyEvents()
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Binding is a key that sends a command without a payload.
type Binding struct {
	Key  rune
	Cmd  protocol.Command
	Help string
}

// Bindings maps the console keys onto commands. Keys match the command
// bytes; SETTINGS, EXP_LOOKUP and EXP_DELETE need a payload and are prompted
// for separately.
var Bindings = []Binding{
	{'a', protocol.MotorOn, "motor on"},
	{'b', protocol.MotorOff, "motor off"},
	{'c', protocol.LEDOn, "led on"},
	{'d', protocol.LEDOff, "led off"},
	{'e', protocol.RequestPressure, "pressure stream on/off"},
	{'f', protocol.Snapshot, "spectrum snapshot"},
	{'g', protocol.StartStream, "start spectrum stream"},
	{'h', protocol.StopStream, "stop spectrum stream"},
	{'j', protocol.ExpStart, "start experiment"},
	{'k', protocol.ExpStop, "stop experiment"},
	{'l', protocol.ExpStatus, "experiment status"},
	{'m', protocol.ExpList, "list experiments"},
	{'q', protocol.Quit, "quit"},
}

// CommandForKey returns the command bound to r.
func CommandForKey(r rune) (protocol.Command, bool) {
	for _, b := range Bindings {
		if b.Key == r {
			return b.Cmd, true
		}
	}
	return 0, false
}

// NeedsPayload reports whether the key starts a prompted command.
func NeedsPayload(r rune) (protocol.Command, bool) {
	switch protocol.Command(r) {
	case protocol.Settings, protocol.ExpLookup, protocol.ExpDelete:
		return protocol.Command(r), true
	}
	return 0, false
}
