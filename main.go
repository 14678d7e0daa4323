package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pgj1978/PI-VPN-Router/cmd"
)

const defaultConfigFile = "/etc/pi-vpn-router/config.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
		configFile := serveFlags.String("config", defaultConfigFile, "Configuration file")
		serveFlags.StringVar(configFile, "c", defaultConfigFile, "Configuration file (short)")
		serveFlags.Parse(os.Args[2:])

		if err := cmd.RunServe(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Serve failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		configFile := checkFlags.String("config", defaultConfigFile, "Configuration file")
		checkFlags.StringVar(configFile, "c", defaultConfigFile, "Configuration file (short)")
		checkFlags.Parse(os.Args[2:])

		if err := cmd.RunCheck(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		statusFlags := flag.NewFlagSet("status", flag.ExitOnError)
		configFile := statusFlags.String("config", defaultConfigFile, "Configuration file")
		statusFlags.StringVar(configFile, "c", defaultConfigFile, "Configuration file (short)")
		statusFlags.Parse(os.Args[2:])

		if err := cmd.RunStatus(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`pi-vpn-router - policy-based VPN routing for a Linux gateway

Usage:
  pi-vpn-router serve  [-c config]   Run the routing daemon and HTTP API
  pi-vpn-router check  [-c config]   Validate the configuration file
  pi-vpn-router status [-c config]   Show tunnel and policy status
  pi-vpn-router help                 Show this help
`)
}
