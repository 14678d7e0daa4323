package cmd

import (
	"fmt"

	"github.com/pgj1978/PI-VPN-Router/internal/config"
)

// RunCheck validates the configuration file.
func RunCheck(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Println("Configuration valid!")
	fmt.Printf("WAN interface:  %s\n", cfg.WANInterface)
	fmt.Printf("LAN interface:  %s\n", cfg.LANInterface)
	fmt.Printf("Gateway IP:     %s\n", cfg.GatewayIP)
	fmt.Printf("Bypass mark:    %d\n", cfg.BypassMark)
	fmt.Printf("Policy file:    %s\n", cfg.PolicyFile)
	fmt.Printf("Listen address: %s\n", cfg.ListenAddr)
	return nil
}
