package liveview

import (
	"context"
	"fmt"

	termbox "github.com/nsf/termbox-go"
)

// TermboxRenderer draws on the terminal through termbox. Create with
// OpenTerminal and always Close to restore the terminal state.
type TermboxRenderer struct{}

// OpenTerminal initializes the terminal display.
func OpenTerminal() (*TermboxRenderer, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("liveview: init terminal: %w", err)
	}

	termbox.HideCursor()

	return &TermboxRenderer{}, nil
}

// Close restores the terminal.
func (r *TermboxRenderer) Close() {
	termbox.Close()
}

// Size returns the terminal dimensions.
func (r *TermboxRenderer) Size() (int, int) {
	return termbox.Size()
}

// Clear wipes the cell buffer.
func (r *TermboxRenderer) Clear() error {
	return termbox.Clear(termbox.ColorWhite, termbox.ColorBlack)
}

// SetCell writes one character.
func (r *TermboxRenderer) SetCell(x, y int, ch rune) {
	termbox.SetCell(x, y, ch, termbox.ColorWhite, termbox.ColorBlack)
}

// Flush presents the frame.
func (r *TermboxRenderer) Flush() error {
	return termbox.Flush()
}

// WatchQuitKeys cancels the context when Esc or q is pressed. Run it in
// its own goroutine; it returns when the terminal closes or a quit key
// arrives.
func (r *TermboxRenderer) WatchQuitKeys(cancel context.CancelFunc) {
	for {
		switch ev := termbox.PollEvent(); ev.Type {
		case termbox.EventKey:
			if ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC || ev.Ch == 'q' {
				cancel()
				return
			}
		case termbox.EventError:
			cancel()
			return
		}
	}
}
