// Command stepbench is a host-side bench harness for the stepper
// pulse generator: it wires queue.RingQueue, stepper.Generator and a
// software sched.Queue together and replays a line-oriented control
// script against them, the stand-in for "the host" spec.md treats as
// an external collaborator the generator was never meant to include.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"
	serialport "github.com/tarm/serial"

	"stepcore/config"
	"stepcore/diag"
	"stepcore/kinematics"
	"stepcore/pinsink"
	"stepcore/queue"
	"stepcore/report"
	"stepcore/sched"
	"stepcore/stepper"
)

func main() {
	scriptPath := flag.String("script", "", "control script to replay (defaults to stdin)")
	configPath := flag.String("config", "", "machine configuration JSON (defaults to config.Default())")
	serialDevice := flag.String("serial", "", "optional serial device to mirror report lines to")
	flag.Parse()

	mc, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stepbench:", err)
		os.Exit(1)
	}

	var reportSink io.Writer = os.Stdout
	if *serialDevice != "" {
		port, err := serialport.OpenPort(&serialport.Config{Name: *serialDevice, Baud: 250000})
		if err != nil {
			fmt.Fprintln(os.Stderr, "stepbench: opening serial device:", err)
			os.Exit(1)
		}
		defer port.Close()
		reportSink = port
	}

	in := os.Stdin
	if *scriptPath != "" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "stepbench:", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	b := newBench(mc, reportSink)
	if err := b.run(in); err != nil {
		fmt.Fprintln(os.Stderr, "stepbench:", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.MachineConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return config.Load(data)
}

// bench holds the wired-together simulation: a software clock, the
// block queue, the generator, and the axis scales needed to translate
// its reports into millimeters.
type bench struct {
	clock  sched.Queue
	src    *queue.RingQueue
	gen    *stepper.Generator
	build  *queue.Builder
	diag   *diag.Sink
	out    io.Writer
	scales [3]report.AxisScale
	pos    queue.Position
}

func newBench(mc *config.MachineConfig, out io.Writer) *bench {
	src := queue.NewRingQueue(16)
	d := diag.NewSink()
	d.SetWriter(func(line string) { fmt.Fprintln(out, line) })
	d.SetEnabled(true)

	pins := stepper.Pins{
		X: softAxis(),
		Y: softAxis(),
		Z: softAxis(),
		E: []stepper.AxisPins{softAxis()},
	}

	cfg := stepper.Config{
		Kinematics:          mc.Kinematics,
		ExtruderRouting:      mc.ExtruderRouting,
		ZDualStepperDrivers: kinematics.ZDualStepperDrivers(mc.ZDualStepperDrivers),
		ZLateEnable:         mc.ZLateEnable,
		AbortOnEndstopHit:   mc.AbortOnEndstopHit,
		MaxStepFrequency:    mc.MaxStepFrequency,
		XCarriageHomeDir:    mc.XCarriageHomeDir,
	}

	b := &bench{src: src, diag: d, out: out}
	b.gen = stepper.New(cfg, src, &b.clock, pins, d)
	if mc.Advance {
		b.gen.EnableAdvance(&b.clock)
	}
	b.gen.Init()

	limits := map[string]queue.AxisLimits{
		"x": {StepsPerMM: 80, MaxVelocity: 300, MaxAccel: 3000},
		"y": {StepsPerMM: 80, MaxVelocity: 300, MaxAccel: 3000},
		"z": {StepsPerMM: 400, MaxVelocity: 10, MaxAccel: 100},
		"e": {StepsPerMM: 400, MaxVelocity: 50, MaxAccel: 1000},
	}
	b.build = &queue.Builder{Axes: limits}
	b.scales = [3]report.AxisScale{{StepsPerMM: 80}, {StepsPerMM: 80}, {StepsPerMM: 400}}

	return b
}

func softAxis() stepper.AxisPins {
	return stepper.AxisPins{
		Step:       pinsink.NewStepSink(pinsink.NewSoftPin(), false),
		Dir:        pinsink.NewDirSink(pinsink.NewSoftPin(), false),
		Enable:     pinsink.NewEnableSink(pinsink.NewSoftPin(), false),
		EndstopMin: pinsink.NewEndstopSink(pinsink.NewSoftPin(), false),
	}
}

// run reads r line by line, tokenizing each with shlex the way a
// shell would and dispatching to the matching command.
func (b *bench) run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, err := shlex.Split(line)
		if err != nil {
			return fmt.Errorf("tokenizing %q: %w", line, err)
		}
		if len(fields) == 0 {
			continue
		}
		if err := b.dispatch(fields[0], fields[1:]); err != nil {
			return fmt.Errorf("%q: %w", line, err)
		}
	}
	return scanner.Err()
}

func (b *bench) dispatch(cmd string, args []string) error {
	kv := parseKV(args)
	switch cmd {
	case "move":
		return b.cmdMove(kv)
	case "set-position":
		return b.cmdSetPosition(kv)
	case "quickstop":
		b.gen.QuickStop()
		return nil
	case "endstops":
		b.gen.EnableEndstops(kv["state"] != "off")
		return nil
	case "sync":
		b.pumpUntilDrained()
		return nil
	case "report":
		b.printReport()
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (b *bench) cmdMove(kv map[string]string) error {
	next := b.pos
	next.X += kvFloat(kv, "x", 0)
	next.Y += kvFloat(kv, "y", 0)
	next.Z += kvFloat(kv, "z", 0)
	next.E += kvFloat(kv, "e", 0)

	move := queue.Move{
		Start:          b.pos,
		End:            next,
		Velocity:       kvFloat(kv, "vel", 50),
		Accel:          kvFloat(kv, "accel", 500),
		ActiveExtruder: int(kvFloat(kv, "extruder", 0)),
	}
	blk, err := b.build.Build(move)
	if err != nil {
		return err
	}
	if !b.src.Push(blk) {
		return fmt.Errorf("queue full")
	}
	b.pos = next
	return nil
}

func (b *bench) cmdSetPosition(kv map[string]string) error {
	x := int32(kvFloat(kv, "x", 0))
	y := int32(kvFloat(kv, "y", 0))
	z := int32(kvFloat(kv, "z", 0))
	e := int32(kvFloat(kv, "e", 0))
	b.gen.SetPosition(x, y, z, e)
	return nil
}

// pumpUntilDrained dispatches the software clock until the generator
// has consumed every queued block, the non-blocking stand-in for
// st_synchronize's busy loop.
func (b *bench) pumpUntilDrained() {
	for !b.gen.Synchronize() {
		wake, ok := b.clock.NextWake()
		if !ok {
			return
		}
		b.clock.SetNow(wake)
		b.clock.Dispatch()
	}
}

func (b *bench) printReport() {
	hit, any := b.gen.CheckHitEndstops()
	if line := report.EndstopLine(hit, any, b.scales[0], b.scales[1], b.scales[2]); line != "" {
		fmt.Fprintln(b.out, line)
	}
	fmt.Fprintf(b.out, "position: X:%d Y:%d Z:%d E:%d\n",
		b.gen.GetPosition(0), b.gen.GetPosition(1), b.gen.GetPosition(2), b.gen.GetPosition(3))
}

func parseKV(args []string) map[string]string {
	kv := make(map[string]string, len(args))
	for _, a := range args {
		if i := strings.IndexByte(a, '='); i >= 0 {
			kv[a[:i]] = a[i+1:]
		} else {
			kv[a] = ""
		}
	}
	return kv
}

func kvFloat(kv map[string]string, key string, def float64) float64 {
	v, ok := kv[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
