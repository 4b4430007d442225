package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"servomux/config"
	"servomux/core"
	"servomux/host/sim"

	"github.com/google/shlex"
)

var (
	configPath = flag.String("config", "", "Device config (JSON)")
	debug      = flag.Bool("debug", false, "Print firmware debug output on stderr")
	traceEvery = flag.Duration("trace", 0, "Print channel pulses at this interval (0 = off)")
	speed      = flag.Int("speed", 1, "Simulated milliseconds per real millisecond")
)

func main() {
	flag.Parse()

	core.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
	core.SetDebugEnabled(*debug)
	core.InitAsyncDebug()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read config: %v\n", err)
			os.Exit(1)
		}
		if cfg, err = config.LoadConfig(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	dev, err := sim.New(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dev.Hello()

	// stdin is read on its own goroutine; everything touching the device
	// stays on this one.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	var trace <-chan time.Time
	if *traceEvery > 0 {
		t := time.NewTicker(*traceEvery)
		defer t.Stop()
		trace = t.C
	}

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.HasPrefix(line, ".") {
				if quit := simCommand(dev, line[1:], os.Stdout); quit {
					return
				}
				continue
			}
			dev.Feed([]byte(line + "\r"))

		case <-tick.C:
			dev.Advance(*speed * sim.TicksPerMillisecond)

		case <-trace:
			printPulses(dev, os.Stdout)
		}
	}
}

// simCommand runs a dot-command addressed to the simulator itself
func simCommand(dev *sim.Device, line string, out io.Writer) bool {
	args, err := shlex.Split(line)
	if err != nil || len(args) == 0 {
		fmt.Fprintln(out, "sim: bad command")
		return false
	}

	switch args[0] {
	case "quit", "q":
		return true
	case "pulses":
		printPulses(dev, out)
	case "timing":
		dev.DumpTiming()
	case "state":
		ch, phase := dev.Snapshot()
		fmt.Fprintf(out, "sim: t=%dus channel=%d phase=%s boots=%d\n",
			core.TicksToUS(uint32(dev.Now())), ch, phase, dev.Boots())
	case "debug":
		core.SetDebugEnabled(len(args) < 2 || args[1] != "off")
	default:
		fmt.Fprintln(out, "sim: commands are .pulses .timing .state .debug [off] .quit")
	}
	return false
}

func printPulses(dev *sim.Device, out io.Writer) {
	for ch, p := range dev.Pulses() {
		if p.Ticks == 0 {
			fmt.Fprintf(out, "sim: ch%d idle\n", ch)
			continue
		}
		fmt.Fprintf(out, "sim: ch%d high %dus every %dus\n", ch, p.Micros(), core.TicksToUS(p.Period))
	}
}
