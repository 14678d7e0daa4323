package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindDeviceCaseInsensitive(t *testing.T) {
	p := Empty()
	p.Devices = append(p.Devices, Device{MAC: "AA:BB:CC:DD:EE:FF", IP: "192.168.5.20"})

	assert.NotNil(t, p.FindDevice("aa:bb:cc:dd:ee:ff"))
	assert.NotNil(t, p.FindDevice("AA:BB:CC:DD:EE:FF"))
	assert.Nil(t, p.FindDevice("11:22:33:44:55:66"))

	// The returned pointer mutates the document.
	p.FindDevice("aa:bb:cc:dd:ee:ff").BypassVPN = true
	assert.True(t, p.Devices[0].BypassVPN)
}

func TestAddDomainRejectsDuplicates(t *testing.T) {
	p := Empty()

	assert.True(t, p.AddDomain("example.com"))
	assert.False(t, p.AddDomain("example.com"))
	assert.Len(t, p.DomainBypasses, 1)
	assert.True(t, p.DomainBypasses[0].Enabled)

	// Domain matching is exact, not case-folded.
	assert.True(t, p.AddDomain("Example.com"))
}

func TestRemoveDomain(t *testing.T) {
	p := Empty()
	p.AddDomain("a.example")
	p.AddDomain("b.example")

	assert.True(t, p.RemoveDomain("a.example"))
	assert.False(t, p.RemoveDomain("a.example"))
	assert.Len(t, p.DomainBypasses, 1)
	assert.Equal(t, "b.example", p.DomainBypasses[0].Domain)
}
