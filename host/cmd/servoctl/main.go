package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"servomux/config"
	"servomux/core"
	"servomux/driver"
	"servomux/host/link"
	"servomux/host/serial"
	"servomux/host/sim"

	"github.com/google/shlex"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud       = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	configPath = flag.String("config", "", "Device config (JSON), used with -sim")
	simulate   = flag.Bool("sim", false, "Talk to an in-process simulated controller")
	timeout    = flag.Duration("timeout", link.DefaultTimeout, "Reply timeout")
	verbose    = flag.Bool("verbose", false, "Print unsolicited controller output")
)

// controller bundles the raw register link with the typed driver on top
type controller struct {
	link  *link.Link
	servo *driver.Device
	dict  *core.RegisterFile
}

func main() {
	flag.Parse()

	port, cancel, err := openPort()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cancel()

	l, err := link.Open(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer l.Close()
	l.SetTimeout(*timeout)
	if *verbose {
		l.SetUnsolicitedHandler(func(s string) { fmt.Println("<", s) })
	}

	c := &controller{
		link:  l,
		servo: driver.New(l, driver.Address),
		// The register map is static; a local file serves as its dictionary
		dict: core.NewRegisterFile(core.NewChannelTable()),
	}

	// One-shot mode: the remaining arguments are a single command
	if flag.NArg() > 0 {
		if err := c.execute(flag.Args(), os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("servoctl - servo controller console")
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" || args[0] == "q" {
			fmt.Println("Goodbye!")
			return
		}

		if err := c.execute(args, os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// openPort opens the serial device, or starts a simulator in -sim mode
func openPort() (io.ReadWriteCloser, func(), error) {
	if !*simulate {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		port, err := serial.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return port, func() {}, nil
	}

	var cfg *config.DeviceConfig
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
		if cfg, err = config.LoadConfig(data); err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	port, err := sim.NewPort(cfg)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	go port.Device().Run(ctx)
	return port, cancel, nil
}

func (c *controller) execute(args []string, out io.Writer) error {
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help", "?":
		printHelp(out)
		return nil

	case "regs":
		fmt.Fprint(out, c.dict.Describe())
		return nil

	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get <register>")
		}
		reg, err := c.register(args[0])
		if err != nil {
			return err
		}
		v, err := c.link.Get(reg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "0x%02x = %d\n", reg, v)
		return nil

	case "set":
		if len(args) != 2 {
			return fmt.Errorf("usage: set <register> <value>")
		}
		reg, err := c.register(args[0])
		if err != nil {
			return err
		}
		v, err := parseByte(args[1])
		if err != nil {
			return err
		}
		return c.link.Set(reg, v)

	case "enable", "disable":
		chs, err := channels(args)
		if err != nil {
			return err
		}
		for _, ch := range chs {
			if cmd == "enable" {
				err = c.servo.Enable(ch)
			} else {
				err = c.servo.Disable(ch)
			}
			if err != nil {
				return fmt.Errorf("channel %d: %w", ch, err)
			}
		}
		return nil

	case "angle":
		return c.channelValue(args, out, "deg", c.servo.Angle, c.servo.SetAngle)

	case "ticks":
		return c.channelValue(args, out, "ticks", c.servo.PulseTicks, c.servo.SetPulseTicks)

	case "status":
		return c.status(out)

	case "sweep":
		return c.sweep(args)

	case "reset":
		if err := c.servo.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(out, "reset requested, controller back in ~%v\n", core.ResetDelay)
		return nil

	default:
		return fmt.Errorf("unknown command %q (type 'help')", cmd)
	}
}

// channelValue reads a channel value, or sets it when a value is given
func (c *controller) channelValue(args []string, out io.Writer, unit string,
	get func(uint8) (uint8, error), set func(uint8, uint8) error) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: <channel> [value]")
	}
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		v, err := parseByte(args[1])
		if err != nil {
			return err
		}
		return set(ch, v)
	}
	v, err := get(ch)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "channel %d: %d %s\n", ch, v, unit)
	return nil
}

func (c *controller) status(out io.Writer) error {
	fmt.Fprintln(out, "ch  enabled  ticks  pulse_us  degrees")
	for ch := uint8(0); ch < core.NumChannels; ch++ {
		on, err := c.servo.Enabled(ch)
		if err != nil {
			return err
		}
		ticks, err := c.servo.PulseTicks(ch)
		if err != nil {
			return err
		}
		deg, err := c.servo.Angle(ch)
		if err != nil {
			return err
		}
		us := core.TicksToUS(uint32(ticks) + core.PreRollTicks)
		fmt.Fprintf(out, "%-3d %-8v %-6d %-9d %d\n", ch, on, ticks, us, deg)
	}
	return nil
}

// sweep moves a channel from one angle to another in 1 degree steps
func (c *controller) sweep(args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("usage: sweep <channel> <from> <to> [step-delay]")
	}
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	from, err := parseByte(args[1])
	if err != nil {
		return err
	}
	to, err := parseByte(args[2])
	if err != nil {
		return err
	}
	delay := 20 * time.Millisecond
	if len(args) == 4 {
		if delay, err = time.ParseDuration(args[3]); err != nil {
			return err
		}
	}

	step := 1
	if to < from {
		step = -1
	}
	for deg := int(from); ; deg += step {
		if err := c.servo.SetAngle(ch, uint8(deg)); err != nil {
			return fmt.Errorf("at %d degrees: %w", deg, err)
		}
		if deg == int(to) {
			return nil
		}
		time.Sleep(delay)
	}
}

// register resolves a register name or number
func (c *controller) register(s string) (uint8, error) {
	if r, ok := c.dict.LookupName(s); ok {
		return r.Addr, nil
	}
	return parseByte(s)
}

func channels(args []string) ([]uint8, error) {
	if len(args) == 1 && args[0] == "all" {
		var all []uint8
		for ch := uint8(0); ch < core.NumChannels; ch++ {
			all = append(all, ch)
		}
		return all, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: <channel>... | all")
	}
	var out []uint8
	for _, a := range args {
		ch, err := parseChannel(a)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

func parseChannel(s string) (uint8, error) {
	ch, err := strconv.ParseUint(s, 10, 8)
	if err != nil || ch >= core.NumChannels {
		return 0, fmt.Errorf("invalid channel %q", s)
	}
	return uint8(ch), nil
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return uint8(v), nil
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `Available commands:
  get <reg>                  Read a register (name or number, e.g. ticks0 or 0x30)
  set <reg> <value>          Write a register
  regs                       List the register map
  enable <ch>... | all       Start driving channels
  disable <ch>... | all      Stop driving channels
  angle <ch> [deg]           Read or set a channel position
  ticks <ch> [n]             Read or set the raw pulse ticks
  sweep <ch> <from> <to> [d] Step a channel between two angles
  status                     Show every channel
  reset                      Restart the controller
  help                       Show this help
  quit                       Exit
`)
}
