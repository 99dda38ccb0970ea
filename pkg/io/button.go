package io

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const debounce = 10 * time.Millisecond

// Button reports presses of a pulled up push button.
type Button struct {
	offset  int
	pressed bool
	start   time.Time
	Event   chan ButtonEvent
}

// ButtonEvent is sent on release with the time the button was held.
type ButtonEvent struct {
	Offset   int
	Duration time.Duration
}

func (b *Button) eventHandler(evt gpiocdev.LineEvent) {
	// pulled up: falling edge is a press
	pressed := evt.Type == gpiocdev.LineEventFallingEdge
	if pressed == b.pressed {
		return
	}
	now := time.Now()
	held := now.Sub(b.start)
	b.pressed = pressed
	b.start = now
	if pressed || held < debounce {
		return
	}
	select {
	case b.Event <- ButtonEvent{Offset: b.offset, Duration: held}:
	default:
	}
}

// WatchButton requests lineOffset as a pulled up input and reports presses on the returned
// button's Event channel.
func (io *IO) WatchButton(lineOffset int) (*Button, error) {
	b := &Button{
		offset: lineOffset,
		Event:  make(chan ButtonEvent, 1),
	}
	io.mu.Lock()
	defer io.mu.Unlock()
	line, err := io.chip.RequestLine(lineOffset,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(b.eventHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to request GPIO line: %w", err)
	}
	io.lines[lineOffset] = line
	io.logger.Infow("watching button", "line", lineOffset)
	return b, nil
}
