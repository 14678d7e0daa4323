// Package vpn manages the lifecycle of the single tunnel interface:
// switching it between stored WireGuard profiles, autostart-on-boot, and
// the aggressive teardown of anything resembling tunnel state left by
// earlier activations.
package vpn

import (
	"errors"
	"time"
)

var (
	// ErrProfileNotFound means the named profile has no stored config.
	ErrProfileNotFound = errors.New("vpn profile not found")
	// ErrProfileExists means a profile with that name already exists.
	ErrProfileExists = errors.New("vpn profile already exists")
	// ErrProfileActive means the profile is the active one and must be
	// disconnected before deletion.
	ErrProfileActive = errors.New("cannot delete active profile, disconnect first")
	// ErrInvalidName means the profile name is empty or unsafe.
	ErrInvalidName = errors.New("invalid profile name")
	// ErrInvalidProfile means the config content is not WireGuard-shaped.
	ErrInvalidProfile = errors.New("invalid wireguard configuration format")
)

// ProfileInfo describes one stored profile in a listing.
type ProfileInfo struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	// Active means this profile is current AND the interface is up.
	Active bool `json:"active"`
	// IsCurrent means the policy names this profile, up or not.
	IsCurrent bool `json:"is_current"`
}

// Status is the current tunnel state.
type Status struct {
	Connected     bool      `json:"connected"`
	Interface     string    `json:"interface"`
	ActiveProfile string    `json:"active_profile,omitempty"`
	PublicKey     string    `json:"public_key,omitempty"`
	LastHandshake time.Time `json:"last_handshake,omitempty"`
}
