// Command slavectl talks to the sensorslave firmware over USB serial.
//
// With arguments it runs one command and exits; without it reads commands
// from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"sensorslave/core"
	"sensorslave/host/mcu"
	"sensorslave/host/serial"
)

var (
	device   = flag.String("device", "", "Serial device path (default: first RP2040 found)")
	baud     = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	timeout  = flag.Duration("timeout", time.Second, "Per-command response timeout")
	logLevel = flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	list     = flag.Bool("list", false, "List RP2040 serial ports and exit")
)

func main() {
	flag.Parse()

	level := slog.LevelWarn
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *list {
		ports, err := serial.FindDevices("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Printf("%s\t%s:%s\t%s\n", p.Name, p.VID, p.PID, p.Serial)
		}
		return
	}

	dev := *device
	if dev == "" {
		found, err := serial.FindDevice()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v (use -device)\n", err)
			os.Exit(1)
		}
		dev = found
	}

	cfg := serial.DefaultConfig(dev)
	cfg.Baud = *baud
	log.Info("connecting", "device", dev)
	conn, err := mcu.ConnectWithConfig(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*(*timeout))
	err = conn.RetrieveDictionary(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		if err := run(conn, flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "quit", "exit", "q":
			return
		case "help", "?":
			printHelp()
			continue
		}
		if err := run(conn, parts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  dict                 - Print dictionary summary")
	fmt.Println("  raw                  - Print raw dictionary data")
	fmt.Println("  clock | uptime       - Read MCU timer")
	fmt.Println("  status               - Bound buses and mailbox")
	fmt.Println("  bind <bus> <addr>    - Bind a controller as slave")
	fmt.Println("  unbind <bus>         - Release a controller")
	fmt.Println("  value <v>            - Publish a value")
	fmt.Println("  read_required [0|1]  - Query or set read-required")
	fmt.Println("  selection            - Selected bundle and sensor")
	fmt.Println("  trace                - Dump the firmware trace ring")
	fmt.Println("  quit/exit/q          - Exit the program")
	fmt.Println()
}

var errUsage = errors.New("bad arguments (type 'help')")

// parseUint accepts decimal or 0x-prefixed values
func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errUsage, s)
	}
	return v, nil
}

func run(conn *mcu.MCU, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch args[0] {
	case "dict":
		return conn.PrintDictionary(os.Stdout)

	case "raw":
		raw := conn.GetDictionaryData()
		fmt.Printf("Raw dictionary data (%d bytes):\n%s\n", len(raw), raw)
		return nil

	case "clock":
		clock, err := conn.Clock(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("clock=%d\n", clock)
		return nil

	case "uptime":
		up, err := conn.Uptime(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("uptime=%s\n", up)
		return nil

	case "status":
		st, err := conn.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Println(st)
		return nil

	case "bind":
		if len(args) != 3 {
			return errUsage
		}
		bus, err := parseUint(args[1], 8)
		if err != nil {
			return err
		}
		addr, err := parseUint(args[2], 7)
		if err != nil {
			return err
		}
		st, err := conn.BindSlave(ctx, uint8(bus), uint8(addr))
		if err != nil {
			return err
		}
		fmt.Println(st)
		return nil

	case "unbind":
		if len(args) != 2 {
			return errUsage
		}
		bus, err := parseUint(args[1], 8)
		if err != nil {
			return err
		}
		st, err := conn.UnbindSlave(ctx, uint8(bus))
		if err != nil {
			return err
		}
		fmt.Println(st)
		return nil

	case "value":
		if len(args) != 2 {
			return errUsage
		}
		v, err := parseUint(args[1], 16)
		if err != nil {
			return err
		}
		stored, err := conn.SetValue(ctx, uint16(v))
		if err != nil {
			return err
		}
		fmt.Printf("value=0x%02x\n", stored)
		return nil

	case "read_required":
		var read bool
		var err error
		switch len(args) {
		case 1:
			read, err = conn.ReadRequired(ctx)
		case 2:
			read, err = conn.SetReadRequired(ctx, args[1] != "0")
		default:
			return errUsage
		}
		if err != nil {
			return err
		}
		fmt.Printf("read_required=%t\n", read)
		return nil

	case "selection":
		bundle, err := conn.SelectedBundle(ctx)
		if err != nil {
			return err
		}
		sensor, err := conn.SelectedSensor(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("bundle=%d sensor=%d\n", bundle, sensor)
		return nil

	case "trace":
		entries, err := conn.DumpTrace(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-8s bus=%d clock=%d v1=0x%x v2=0x%x\n", traceName(e.Type), e.Bus, e.Clock, e.Value1, e.Value2)
		}
		return nil
	}
	return fmt.Errorf("unknown command: %s (type 'help' for available commands)", args[0])
}

func traceName(t uint8) string {
	switch t {
	case core.EvtReceive:
		return "RECEIVE"
	case core.EvtRequest:
		return "REQUEST"
	case core.EvtFinish:
		return "FINISH"
	case core.EvtPollService:
		return "SERVICE"
	case core.EvtPollStale:
		return "STALE"
	case core.EvtPollError:
		return "READ_ERR"
	}
	return "UNKNOWN"
}
