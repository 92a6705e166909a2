package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"joyrec/host/mcu"
	"joyrec/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	mcuConn := mcu.NewMCU()
	if *verbose {
		fmt.Printf("Connecting to MCU on %s...\n", *device)
	}
	if err := mcuConn.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mcuConn.Close()

	var progress func(int)
	if *verbose {
		progress = func(n int) { fmt.Printf("  Retrieved %d bytes...\r", n) }
	}
	if err := mcuConn.RetrieveDictionary(progress); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Println()
	}

	// One-shot command from the arguments
	if flag.NArg() > 0 {
		if err := runCommand(mcuConn, flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("joyrec host - enter commands ('help' for a list, 'quit' to exit)")
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
		default:
			if err := runCommand(mcuConn, parts); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [command [args]]\n\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "\nWithout a command an interactive prompt is started.")
	printHelp()
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  status          - Show mode, cursor and line state")
	fmt.Println("  idle            - Stop recording or playback")
	fmt.Println("  record          - Start recording from the beginning")
	fmt.Println("  play            - Start playback from the beginning")
	fmt.Println("  dump FILE       - Download the recording to FILE")
	fmt.Println("  load FILE       - Upload FILE to the device (idle only)")
	fmt.Println("  clear           - Zero the recording (idle only)")
	fmt.Println("  uptime          - Show device uptime")
	fmt.Println("  debug           - Dump the device timing ring to its debug output")
	fmt.Println("  dict            - Print dictionary summary")
	fmt.Println("  raw             - Print raw dictionary JSON")
	fmt.Println("  quit/exit/q     - Exit the interactive prompt")
	fmt.Println()
}
