package discovery

import (
	"net"
	"testing"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryToService(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		HostName: "devbox.local.",
		Port:     6076,
		Text:     []string{"version=0.3.0"},
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.20")},
	}
	entry.Instance = "genie-server"

	svc := entryToService(entry)
	require.NotNil(t, svc)
	assert.Equal(t, "genie-server", svc.InstanceName)
	assert.Equal(t, uint16(6076), svc.Port)
	assert.Equal(t, "0.3.0", svc.Version)
	assert.Equal(t, []string{"192.168.1.20"}, svc.Addresses)

	assert.Nil(t, entryToService(nil))
}

func TestEndpointPrefersConcreteAddress(t *testing.T) {
	svc := &AgentService{
		Host:      "devbox.local.",
		Port:      6076,
		Addresses: []string{"192.168.1.20"},
	}
	assert.Equal(t, "192.168.1.20:6076", svc.Endpoint())

	// Without addresses the hostname is used, trailing dot trimmed.
	svc.Addresses = nil
	assert.Equal(t, "devbox.local:6076", svc.Endpoint())
}

func TestTXTValue(t *testing.T) {
	records := []string{"version=1.2", "name=genie"}
	assert.Equal(t, "1.2", txtValue(records, "version"))
	assert.Equal(t, "genie", txtValue(records, "name"))
	assert.Empty(t, txtValue(records, "missing"))
}

func TestMergeAddresses(t *testing.T) {
	merged := mergeAddresses(
		[]string{"192.168.1.20"},
		[]string{"192.168.1.20", "fe80::1"},
	)
	assert.Equal(t, []string{"192.168.1.20", "fe80::1"}, merged)
}
