package vpn

import (
	"strings"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl"

	"github.com/stretchr/testify/mock"
)

// WGClient reports on live WireGuard devices. It is the read side of the
// tunnel: bring-up and teardown still go through wg-quick so the config
// file's Address/DNS/routes are honored.
type WGClient interface {
	// DeviceNames lists every live WireGuard interface.
	DeviceNames() ([]string, error)
	// DeviceInfo reports whether the named device exists and, if so,
	// its public key and most recent peer handshake.
	DeviceInfo(name string) (exists bool, publicKey string, lastHandshake time.Time, err error)
}

// WgctrlClient implements WGClient on top of the wgctrl netlink API.
type WgctrlClient struct{}

func (c *WgctrlClient) DeviceNames() ([]string, error) {
	client, err := wgctrl.New()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	devices, err := client.Devices()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}
	return names, nil
}

func (c *WgctrlClient) DeviceInfo(name string) (bool, string, time.Time, error) {
	client, err := wgctrl.New()
	if err != nil {
		return false, "", time.Time{}, err
	}
	defer client.Close()

	device, err := client.Device(name)
	if err != nil {
		if isNoDevice(err) {
			return false, "", time.Time{}, nil
		}
		return false, "", time.Time{}, err
	}

	var latest time.Time
	for _, p := range device.Peers {
		if p.LastHandshakeTime.After(latest) {
			latest = p.LastHandshakeTime
		}
	}
	return true, device.PublicKey.String(), latest, nil
}

func isNoDevice(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such device") || strings.Contains(msg, "not found")
}

// MockWGClient is a testify mock implementation of WGClient.
type MockWGClient struct {
	mock.Mock
}

func (m *MockWGClient) DeviceNames() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockWGClient) DeviceInfo(name string) (bool, string, time.Time, error) {
	args := m.Called(name)
	return args.Bool(0), args.String(1), args.Get(2).(time.Time), args.Error(3)
}
