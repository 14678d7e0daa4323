package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pgj1978/PI-VPN-Router/internal/config"
	"github.com/pgj1978/PI-VPN-Router/internal/policy"
	"github.com/pgj1978/PI-VPN-Router/internal/vpn"
)

// RunStatus prints the tunnel state and a policy summary.
func RunStatus(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store := policy.NewStore(cfg.PolicyFile)
	pol, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}

	wg := &vpn.WgctrlClient{}
	up, publicKey, handshake, err := wg.DeviceInfo(cfg.WGInterface)
	if err != nil {
		return fmt.Errorf("querying %s: %w", cfg.WGInterface, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if up {
		fmt.Fprintf(w, "Tunnel:\tup (%s)\n", cfg.WGInterface)
		fmt.Fprintf(w, "Profile:\t%s\n", pol.ActiveVPN)
		fmt.Fprintf(w, "Public key:\t%s\n", publicKey)
		if !handshake.IsZero() {
			fmt.Fprintf(w, "Last handshake:\t%s\n", handshake.Format("2006-01-02 15:04:05"))
		}
	} else {
		fmt.Fprintf(w, "Tunnel:\tdown\n")
	}

	fmt.Fprintf(w, "Kill switch:\t%v\n", pol.KillSwitchEnabled)

	bypassed := 0
	for _, d := range pol.Devices {
		if d.BypassVPN {
			bypassed++
		}
	}
	fmt.Fprintf(w, "Devices:\t%d tracked, %d bypassing\n", len(pol.Devices), bypassed)
	fmt.Fprintf(w, "Domains:\t%d bypassed\n", len(pol.DomainBypasses))
	return nil
}
