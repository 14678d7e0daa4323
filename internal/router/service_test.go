package router

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/pgj1978/PI-VPN-Router/internal/config"
	"github.com/pgj1978/PI-VPN-Router/internal/dhcp"
	"github.com/pgj1978/PI-VPN-Router/internal/policy"
	"github.com/pgj1978/PI-VPN-Router/internal/routing"
	"github.com/pgj1978/PI-VPN-Router/internal/system"
	"github.com/pgj1978/PI-VPN-Router/internal/vpn"
)

type fakeLeaseReader struct {
	leases []dhcp.Lease
	err    error
}

func (f *fakeLeaseReader) Leases() ([]dhcp.Lease, error) {
	return f.leases, f.err
}

type serviceFixture struct {
	svc      *Service
	store    *policy.Store
	runner   *system.FakeRunner
	nl       *routing.MockNetlinker
	resolver *routing.MockResolver
	flows    *routing.MockFlowFlusher
	leases   *fakeLeaseReader
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.WANInterface = "eth0"
	cfg.LANInterface = "eth1"
	cfg.GatewayIP = "192.168.5.1"
	cfg.PolicyFile = dir + "/router_policy.json"
	cfg.WireguardDir = dir + "/wireguard"
	cfg.ProfilesDir = dir + "/profiles"

	store := policy.NewStore(cfg.PolicyFile)
	runner := &system.FakeRunner{}
	nl := &routing.MockNetlinker{}
	resolver := &routing.MockResolver{}
	flows := &routing.MockFlowFlusher{}
	engine := routing.NewEngine(cfg, runner, nl, resolver, flows, nil)
	wg := &vpn.MockWGClient{}
	wg.On("DeviceNames").Return([]string{}, nil).Maybe()
	mgr := vpn.NewManager(cfg, store, runner, engine, wg, nl, nil)
	leases := &fakeLeaseReader{}

	svc := NewService(cfg, store, engine, mgr, leases, runner, nil)
	return &serviceFixture{
		svc:      svc,
		store:    store,
		runner:   runner,
		nl:       nl,
		resolver: resolver,
		flows:    flows,
		leases:   leases,
	}
}

func (f *serviceFixture) expectInfra() {
	f.nl.On("LinkByName", "eth0").Return(
		netlink.Link(&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Index: 2, Name: "eth0"}}), nil)
	f.nl.On("RouteReplace", mock.Anything).Return(nil)
	r := netlink.NewRule()
	r.Mark = 100
	r.Table = 100
	f.nl.On("RuleList", unix.AF_INET).Return([]netlink.Rule{*r}, nil)
}

func TestSetDeviceBypassPersistsWhenUnresolvable(t *testing.T) {
	f := newServiceFixture(t)
	f.leases.leases = []dhcp.Lease{
		{MAC: "aa:bb:cc:dd:ee:ff", IP: "192.168.5.50", Hostname: "laptop"},
	}
	// Device is leased but has no live neighbor entry.
	f.nl.On("NeighList", 0, unix.AF_INET).Return([]netlink.Neigh{}, nil)

	res, err := f.svc.SetDeviceBypass("AA:BB:CC:DD:EE:FF", true)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.SkipReason)

	// The policy change stuck even though no kernel rules exist.
	pol, err := f.store.Load()
	require.NoError(t, err)
	dev := pol.FindDevice("aa:bb:cc:dd:ee:ff")
	require.NotNil(t, dev)
	assert.True(t, dev.BypassVPN)
	assert.Equal(t, "192.168.5.50", dev.IP)
	assert.Equal(t, "laptop", dev.Hostname)
	assert.Empty(t, f.runner.Commands)
}

func TestSetDeviceBypassUnknownDevice(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.SetDeviceBypass("11:22:33:44:55:66", true)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	pol, loadErr := f.store.Load()
	require.NoError(t, loadErr)
	assert.Empty(t, pol.Devices)
	assert.Empty(t, f.runner.Commands)
}

func TestSetDeviceBypassApplies(t *testing.T) {
	f := newServiceFixture(t)
	f.expectInfra()
	require.NoError(t, f.store.Save(&policy.RouterPolicy{
		Devices: []policy.Device{{MAC: "aa:bb:cc:dd:ee:ff", IP: "192.168.5.40"}},
	}))
	hw, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	f.nl.On("NeighList", 0, unix.AF_INET).Return([]netlink.Neigh{
		{IP: net.ParseIP("192.168.5.42"), HardwareAddr: hw},
	}, nil)
	f.flows.On("FlushIP", "192.168.5.42").Return(nil)

	res, err := f.svc.SetDeviceBypass("aa:bb:cc:dd:ee:ff", true)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	// The neighbor table wins over the stale cached lease address.
	assert.Equal(t, []string{"192.168.5.42"}, res.IPs)

	assert.Equal(t, 1, f.runner.CountPrefix("iptables -t mangle -A PREROUTING -i eth1 -s 192.168.5.42"))
	f.flows.AssertCalled(t, "FlushIP", "192.168.5.42")

	pol, err := f.store.Load()
	require.NoError(t, err)
	assert.True(t, pol.FindDevice("aa:bb:cc:dd:ee:ff").BypassVPN)
}

func TestListDevicesMergesLeases(t *testing.T) {
	f := newServiceFixture(t)
	f.leases.leases = []dhcp.Lease{
		{MAC: "aa:bb:cc:dd:ee:ff", IP: "192.168.5.50", Hostname: "laptop"},
		{MAC: "11:22:33:44:55:66", IP: "192.168.5.51", Hostname: "phone"},
	}
	require.NoError(t, f.store.Save(&policy.RouterPolicy{
		Devices: []policy.Device{{MAC: "AA:BB:CC:DD:EE:FF", BypassVPN: true}},
	}))

	views, err := f.svc.ListDevices()
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].BypassVPN)
	assert.Equal(t, "laptop", views[0].Hostname)
	assert.False(t, views[1].BypassVPN)
}

func TestAddDomainBypass(t *testing.T) {
	f := newServiceFixture(t)
	f.expectInfra()
	f.resolver.On("LookupA", "example.com").Return([]string{"93.184.216.34"}, nil)

	res, err := f.svc.AddDomainBypass("example.com")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, []string{"93.184.216.34"}, res.IPs)
	assert.Equal(t, 1, f.runner.CountPrefix("iptables -t mangle -A PREROUTING -i eth1 -d 93.184.216.34"))

	_, err = f.svc.AddDomainBypass("example.com")
	assert.ErrorIs(t, err, ErrDomainExists)
}

func TestAddDomainBypassResolveFailureStillPersists(t *testing.T) {
	f := newServiceFixture(t)
	f.resolver.On("LookupA", "broken.example").Return(nil, errors.New("lookup timeout"))

	res, err := f.svc.AddDomainBypass("broken.example")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.SkipReason)

	pol, err := f.store.Load()
	require.NoError(t, err)
	assert.True(t, pol.HasDomain("broken.example"))
	assert.Empty(t, f.runner.Commands)
}

func TestRemoveDomainBypass(t *testing.T) {
	f := newServiceFixture(t)
	f.resolver.On("LookupA", "example.com").Return([]string{"93.184.216.34"}, nil)
	require.NoError(t, f.store.Save(&policy.RouterPolicy{
		DomainBypasses: []policy.DomainBypass{{Domain: "example.com", Enabled: true}},
	}))

	res, err := f.svc.RemoveDomainBypass("example.com")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, f.runner.CountPrefix("iptables -t mangle -D PREROUTING -i eth1 -d 93.184.216.34"))

	_, err = f.svc.RemoveDomainBypass("example.com")
	assert.ErrorIs(t, err, ErrDomainNotFound)
}

func TestSetKillSwitchNoTunnel(t *testing.T) {
	f := newServiceFixture(t)

	active, err := f.svc.SetKillSwitch(true)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, 1, f.runner.CountPrefix("iptables -I FORWARD 1"))

	enabled, err := f.svc.KillSwitchEnabled()
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestSetKillSwitchDeferredWhileConnected(t *testing.T) {
	f := newServiceFixture(t)
	require.NoError(t, f.store.Save(&policy.RouterPolicy{ActiveVPN: "work"}))

	active, err := f.svc.SetKillSwitch(true)
	require.NoError(t, err)
	assert.True(t, active)
	// The tunnel is the protection; no forwarding block is installed.
	assert.Zero(t, f.runner.CountPrefix("iptables -I FORWARD"))

	pol, err := f.store.Load()
	require.NoError(t, err)
	assert.True(t, pol.KillSwitchEnabled)
}

func TestSetKillSwitchDisable(t *testing.T) {
	f := newServiceFixture(t)
	require.NoError(t, f.store.Save(&policy.RouterPolicy{KillSwitchEnabled: true}))

	_, err := f.svc.SetKillSwitch(false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.runner.CountPrefix("iptables -D FORWARD"))

	enabled, err := f.svc.KillSwitchEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestSystemInfo(t *testing.T) {
	f := newServiceFixture(t)
	f.runner.Respond("ip addr show", true, "1: lo: <LOOPBACK>")
	f.runner.Respond("ip route show", false, "")

	ifaces, routes := f.svc.SystemInfo()
	assert.Equal(t, "1: lo: <LOOPBACK>", ifaces)
	assert.Equal(t, "N/A", routes)
}
