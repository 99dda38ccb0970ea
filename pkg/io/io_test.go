package io

import (
	"context"
	"testing"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.viam.com/test"
	"periph.io/x/conn/v3/gpio"
)

type recordingPWM struct {
	channel int
	offs    []int
}

func (r *recordingPWM) SetPwm(channel int, on, off gpio.Duty) error {
	r.channel = channel
	r.offs = append(r.offs, int(off))
	return nil
}

func TestSweepPoints(t *testing.T) {
	test.That(t, sweepPoints(200, 400, 100), test.ShouldResemble, []int{200, 300, 400, 300, 200})
	test.That(t, sweepPoints(200, 450, 100), test.ShouldResemble, []int{200, 300, 400, 450, 400, 300, 200})
	test.That(t, sweepPoints(400, 200, 100), test.ShouldResemble, []int{400, 300, 200, 300, 400})
	test.That(t, sweepPoints(300, 300, 0), test.ShouldResemble, []int{300})
}

func TestSweep(t *testing.T) {
	dev := &recordingPWM{}
	err := sweep(context.Background(), dev, SweepConfig{Channel: 4, From: 250, To: 350, Step: 50})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dev.channel, test.ShouldEqual, 4)
	test.That(t, dev.offs, test.ShouldResemble, []int{250, 300, 350, 300, 250})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dev = &recordingPWM{}
	err = sweep(ctx, dev, SweepConfig{From: 250, To: 350, Step: 50, Delay: time.Hour})
	test.That(t, err, test.ShouldEqual, context.Canceled)
	test.That(t, dev.offs, test.ShouldHaveLength, 1)
}

func TestButtonEvents(t *testing.T) {
	b := &Button{offset: 21, Event: make(chan ButtonEvent, 1)}

	b.eventHandler(gpiocdev.LineEvent{Type: gpiocdev.LineEventFallingEdge})
	time.Sleep(2 * debounce)
	b.eventHandler(gpiocdev.LineEvent{Type: gpiocdev.LineEventRisingEdge})

	select {
	case evt := <-b.Event:
		test.That(t, evt.Offset, test.ShouldEqual, 21)
		test.That(t, evt.Duration, test.ShouldBeGreaterThanOrEqualTo, debounce)
	default:
		t.Fatal("expected a button event")
	}

	// a bounce shorter than the debounce window is ignored
	b.eventHandler(gpiocdev.LineEvent{Type: gpiocdev.LineEventFallingEdge})
	b.eventHandler(gpiocdev.LineEvent{Type: gpiocdev.LineEventRisingEdge})
	test.That(t, b.Event, test.ShouldBeEmpty)
}

func TestPinOffset(t *testing.T) {
	off, err := PinOffset("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, off, test.ShouldEqual, -1)

	off, err = PinOffset("GPIO17")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, off, test.ShouldEqual, 17)
}
