package main

import (
	"bytes"
	"strings"
	"testing"

	"stepcore/config"
)

func TestBenchRunsPureXMoveScript(t *testing.T) {
	var out bytes.Buffer
	b := newBench(config.Default(), &out)

	script := strings.NewReader("move x=10 vel=50 accel=500\nsync\nreport\n")
	if err := b.run(script); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := b.gen.GetPosition(0); got <= 0 {
		t.Fatalf("expected positive X position after move, got %d", got)
	}
	if !strings.Contains(out.String(), "position: X:") {
		t.Fatalf("expected a position report line, got %q", out.String())
	}
}

func TestBenchRejectsUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	b := newBench(config.Default(), &out)

	if err := b.run(strings.NewReader("frobnicate\n")); err == nil {
		t.Fatalf("expected an error for an unknown command")
	}
}

func TestBenchQuickstopDrainsQueue(t *testing.T) {
	var out bytes.Buffer
	b := newBench(config.Default(), &out)

	script := strings.NewReader("move x=1000 vel=50 accel=500\nquickstop\n")
	if err := b.run(script); err != nil {
		t.Fatalf("run: %v", err)
	}
	if b.src.Queued() != 0 {
		t.Fatalf("expected quickstop to drain the queue, got %d remaining", b.src.Queued())
	}
}
