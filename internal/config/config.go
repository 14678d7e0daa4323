// Package config holds the router's fixed configuration: the WAN/LAN
// interface pair, the bypass mark/table value, and the filesystem paths
// used for policy and profile storage.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config is the top-level configuration for the VPN router.
type Config struct {
	// WANInterface is the interface facing the ISP modem.
	WANInterface string `yaml:"wan_interface"`
	// LANInterface is the interface facing local devices.
	LANInterface string `yaml:"lan_interface"`
	// GatewayIP is the upstream (ISP) gateway used by the bypass table.
	GatewayIP string `yaml:"gateway_ip"`

	// BypassMark is the fwmark value AND the routing table ID used for
	// traffic that should skip the tunnel. One knob on purpose: mark,
	// table, and rule fingerprint must always agree.
	BypassMark int `yaml:"bypass_mark"`
	// RulePriority is the priority of the fwmark ip rule.
	RulePriority int `yaml:"rule_priority"`

	// WGInterface is the single live tunnel interface name.
	WGInterface string `yaml:"wg_interface"`
	// WireguardDir is where the live interface config is written.
	WireguardDir string `yaml:"wireguard_dir"`
	// ProfilesDir holds stored tunnel profiles, one .conf file each.
	ProfilesDir string `yaml:"profiles_dir"`

	// PolicyFile is the JSON policy document path.
	PolicyFile string `yaml:"policy_file"`
	// LeasesFile is the dnsmasq lease file used for device discovery.
	LeasesFile string `yaml:"leases_file"`

	// ListenAddr is the HTTP API listen address.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogJSON switches log output to JSON.
	LogJSON bool `yaml:"log_json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WANInterface: "eth0",
		LANInterface: "eth1",
		GatewayIP:    "192.168.5.1",
		BypassMark:   100,
		RulePriority: 1,
		WGInterface:  "wg0",
		WireguardDir: "/etc/wireguard",
		ProfilesDir:  "/var/lib/pi-vpn-router/profiles",
		PolicyFile:   "/var/lib/pi-vpn-router/router_policy.json",
		LeasesFile:   "/var/lib/misc/dnsmasq.leases",
		ListenAddr:   ":8000",
		LogLevel:     "info",
	}
}

// Load reads configuration from a YAML file, applying defaults for any
// field left unset. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if c.WANInterface == "" || c.LANInterface == "" {
		return fmt.Errorf("wan_interface and lan_interface must be set")
	}
	if c.WANInterface == c.LANInterface {
		return fmt.Errorf("wan_interface and lan_interface must differ")
	}
	if c.BypassMark <= 0 || c.BypassMark > 0xFFFF {
		return fmt.Errorf("bypass_mark must be in 1..65535, got %d", c.BypassMark)
	}
	if c.RulePriority <= 0 {
		return fmt.Errorf("rule_priority must be positive, got %d", c.RulePriority)
	}
	if c.WGInterface == "" {
		return fmt.Errorf("wg_interface must be set")
	}
	return nil
}

// WGConfigFile is the live config path for the single tunnel interface.
func (c Config) WGConfigFile() string {
	return filepath.Join(c.WireguardDir, c.WGInterface+".conf")
}

// ProfilePath returns the path of a stored profile's .conf file.
func (c Config) ProfilePath(name string) string {
	return filepath.Join(c.ProfilesDir, name+".conf")
}
