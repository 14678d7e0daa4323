package vpn

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"

	"github.com/pgj1978/PI-VPN-Router/internal/config"
	"github.com/pgj1978/PI-VPN-Router/internal/policy"
	"github.com/pgj1978/PI-VPN-Router/internal/routing"
	"github.com/pgj1978/PI-VPN-Router/internal/system"
)

const sampleProfile = `[Interface]
PrivateKey = aGVsbG8gdGhlcmUgdGhpcyBpcyBub3QgYSBrZXk9
Address = 10.64.0.2/32

[Peer]
PublicKey = d29ybGQgdGhpcyBpcyBhbHNvIG5vdCBhIGtleT0=
Endpoint = vpn.example.com:51820
AllowedIPs = 0.0.0.0/0
`

type fixture struct {
	m      *Manager
	cfg    config.Config
	store  *policy.Store
	runner *system.FakeRunner
	wg     *MockWGClient
	nl     *routing.MockNetlinker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.WireguardDir = filepath.Join(dir, "wireguard")
	cfg.ProfilesDir = filepath.Join(dir, "profiles")
	cfg.PolicyFile = filepath.Join(dir, "router_policy.json")
	require.NoError(t, os.MkdirAll(cfg.ProfilesDir, 0o755))

	store := policy.NewStore(cfg.PolicyFile)
	runner := &system.FakeRunner{}
	wg := &MockWGClient{}
	nl := &routing.MockNetlinker{}
	engine := routing.NewEngine(cfg, runner, nl, &routing.MockResolver{}, nil, nil)

	return &fixture{
		m:      NewManager(cfg, store, runner, engine, wg, nl, nil),
		cfg:    cfg,
		store:  store,
		runner: runner,
		wg:     wg,
		nl:     nl,
	}
}

func (f *fixture) addProfile(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.cfg.ProfilePath(name), []byte(sampleProfile), 0o600))
}

func TestConnectUnknownProfile(t *testing.T) {
	f := newFixture(t)

	err := f.m.Connect("nope")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	pol, _ := f.store.Load()
	assert.Empty(t, pol.ActiveVPN)
	assert.Empty(t, f.runner.Commands)
}

func TestConnectActivatesProfile(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, "siteA")
	f.wg.On("DeviceNames").Return([]string{}, nil)

	require.NoError(t, f.m.Connect("siteA"))

	// Live config written with tight permissions.
	info, err := os.Stat(f.cfg.WGConfigFile())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	content, _ := os.ReadFile(f.cfg.WGConfigFile())
	assert.Equal(t, sampleProfile, string(content))

	assert.Equal(t, 1, f.runner.CountPrefix("wg-quick up wg0"))
	assert.Equal(t, 1, f.runner.CountPrefix("systemctl enable wg-quick@wg0"))

	pol, _ := f.store.Load()
	assert.Equal(t, "siteA", pol.ActiveVPN)
}

func TestConnectSwitchLeavesSingleInterface(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, "siteA")
	f.addProfile(t, "siteB")
	f.wg.On("DeviceNames").Return([]string{}, nil).Once()
	require.NoError(t, f.m.Connect("siteA"))

	// Second connect sees siteA's interface up and tears it down first.
	f.wg.On("DeviceNames").Return([]string{"wg0"}, nil).Once()
	require.NoError(t, f.m.Connect("siteB"))

	content, _ := os.ReadFile(f.cfg.WGConfigFile())
	assert.Equal(t, sampleProfile, string(content))

	pol, _ := f.store.Load()
	assert.Equal(t, "siteB", pol.ActiveVPN)

	// Cleanup disabled the autostart unit for every known profile name,
	// not just the target.
	assert.GreaterOrEqual(t, f.runner.CountPrefix("systemctl disable wg-quick@siteA"), 1)
	assert.GreaterOrEqual(t, f.runner.CountPrefix("systemctl disable wg-quick@siteB"), 1)
	// The stale interface was brought down before the new one came up.
	assert.Equal(t, 1, f.runner.CountPrefix("wg-quick down wg0"))
	// Autostart was re-enabled only for the single interface.
	assert.Equal(t, 2, f.runner.CountPrefix("systemctl enable wg-quick@wg0"))
	assert.Equal(t, 0, f.runner.CountPrefix("systemctl enable wg-quick@siteA"))
	assert.Equal(t, 0, f.runner.CountPrefix("systemctl enable wg-quick@siteB"))
}

func TestConnectForcesLinkDeleteWhenTeardownFails(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, "siteA")
	f.wg.On("DeviceNames").Return([]string{"wg-lon-st001"}, nil)
	f.runner.Respond("wg-quick down wg-lon-st001", false, "config file not found")

	link := &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Index: 7, Name: "wg-lon-st001"}}
	f.nl.On("LinkByName", "wg-lon-st001").Return(link, nil)
	f.nl.On("LinkDel", link).Return(nil)

	require.NoError(t, f.m.Connect("siteA"))

	f.nl.AssertCalled(t, "LinkDel", link)
}

func TestConnectBringUpFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, "siteA")
	f.wg.On("DeviceNames").Return([]string{}, nil)
	f.runner.Respond("wg-quick up wg0", false, "resolvconf: command not found")

	err := f.m.Connect("siteA")
	var cmdErr *system.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Output, "resolvconf")

	// Policy must not claim the profile is active.
	pol, _ := f.store.Load()
	assert.Empty(t, pol.ActiveVPN)
}

func TestConnectLiftsKillSwitch(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, "siteA")
	f.wg.On("DeviceNames").Return([]string{}, nil)

	pol := policy.Empty()
	pol.KillSwitchEnabled = true
	require.NoError(t, f.store.Save(pol))

	require.NoError(t, f.m.Connect("siteA"))

	// The reject rule is removed now that the tunnel protects traffic.
	assert.Equal(t, 1, f.runner.CountPrefix("iptables -D FORWARD -m comment --comment KILLSWITCH"))
	assert.Equal(t, 0, f.runner.CountPrefix("iptables -I FORWARD"))
}

func TestDisconnectNoopWhenDown(t *testing.T) {
	f := newFixture(t)
	f.wg.On("DeviceInfo", "wg0").Return(false, "", time.Time{}, nil)

	wasUp, err := f.m.Disconnect()
	require.NoError(t, err)
	assert.False(t, wasUp)
	assert.Empty(t, f.runner.Commands)
}

func TestDisconnectEngagesKillSwitch(t *testing.T) {
	f := newFixture(t)
	f.wg.On("DeviceInfo", "wg0").Return(true, "pubkey", time.Time{}, nil)

	pol := policy.Empty()
	pol.ActiveVPN = "siteA"
	pol.KillSwitchEnabled = true
	require.NoError(t, f.store.Save(pol))

	wasUp, err := f.m.Disconnect()
	require.NoError(t, err)
	assert.True(t, wasUp)

	assert.Equal(t, 1, f.runner.CountPrefix("wg-quick down wg0"))
	assert.Equal(t, 1, f.runner.CountPrefix("systemctl disable wg-quick@wg0"))
	assert.Equal(t, 1, f.runner.CountPrefix("iptables -I FORWARD 1 -m comment --comment KILLSWITCH"))

	got, _ := f.store.Load()
	assert.Empty(t, got.ActiveVPN)
}

func TestDisconnectDownFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.wg.On("DeviceInfo", "wg0").Return(true, "", time.Time{}, nil)
	f.runner.Respond("wg-quick down wg0", false, "permission denied")

	pol := policy.Empty()
	pol.ActiveVPN = "siteA"
	require.NoError(t, f.store.Save(pol))

	_, err := f.m.Disconnect()
	var cmdErr *system.CommandError
	require.ErrorAs(t, err, &cmdErr)

	got, _ := f.store.Load()
	assert.Equal(t, "siteA", got.ActiveVPN)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	pol := policy.Empty()
	pol.ActiveVPN = "siteA"
	require.NoError(t, f.store.Save(pol))

	handshake := time.Now().Add(-30 * time.Second)
	f.wg.On("DeviceInfo", "wg0").Return(true, "pubkey", handshake, nil)

	st, err := f.m.Status()
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, "siteA", st.ActiveProfile)
	assert.Equal(t, "pubkey", st.PublicKey)
	assert.Equal(t, handshake, st.LastHandshake)
}

func TestStatusDisconnectedHidesProfile(t *testing.T) {
	f := newFixture(t)
	pol := policy.Empty()
	pol.ActiveVPN = "siteA"
	require.NoError(t, f.store.Save(pol))

	f.wg.On("DeviceInfo", "wg0").Return(false, "", time.Time{}, nil)

	st, err := f.m.Status()
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.Empty(t, st.ActiveProfile)
}
