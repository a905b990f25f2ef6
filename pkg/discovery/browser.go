package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// mDNS constants.
const (
	// ServiceType is the agent server's advertised service type.
	ServiceType = "_game-genie._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultBrowseTimeout bounds a Find call.
	DefaultBrowseTimeout = 10 * time.Second
)

// ErrNoAgentFound indicates browsing finished without finding a server.
var ErrNoAgentFound = errors.New("no agent server found")

// AgentService is one discovered agent server.
type AgentService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	// Version from the TXT record, if advertised.
	Version string
}

// Endpoint returns the service as a dialable host:port address, preferring
// a concrete address over the mDNS hostname.
func (s *AgentService) Endpoint() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return fmt.Sprintf("%s:%d", strings.TrimSuffix(host, "."), s.Port)
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for Find (default: 10s).
	BrowseTimeout time.Duration

	// Interface selects one network interface. Empty means all.
	Interface string
}

// Browser browses for agent servers.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	return &Browser{config: config}
}

// Browse streams discovered agent servers until the context is cancelled.
// Addresses from multiple interfaces are aggregated per instance name; a
// service is emitted once, on first sight.
func (b *Browser) Browse(ctx context.Context) (<-chan *AgentService, error) {
	out := make(chan *AgentService)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts, err := b.browserOptions()
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(out)

		services := make(map[string]*AgentService)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToService(entry)
				if svc == nil {
					continue
				}

				existing, found := services[svc.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}

				services[svc.InstanceName] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(services, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// Find returns the first agent server discovered, or ErrNoAgentFound when
// browsing times out.
func (b *Browser) Find(ctx context.Context) (*AgentService, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	services, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case svc, ok := <-services:
		if !ok {
			return nil, ErrNoAgentFound
		}
		return svc, nil
	case <-ctx.Done():
		return nil, ErrNoAgentFound
	}
}

// browserOptions builds zeroconf client options from the config.
func (b *Browser) browserOptions() ([]zeroconf.ClientOption, error) {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err != nil {
			return nil, fmt.Errorf("interface %s: %w", b.config.Interface, err)
		}
		opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
	}
	return opts, nil
}

// entryToService converts a zeroconf entry.
func entryToService(entry *zeroconf.ServiceEntry) *AgentService {
	if entry == nil {
		return nil
	}

	svc := &AgentService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Version:      txtValue(entry.Text, "version"),
	}
	for _, ip := range entry.AddrIPv4 {
		svc.Addresses = append(svc.Addresses, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		svc.Addresses = append(svc.Addresses, ip.String())
	}
	return svc
}

// txtValue extracts a key=value pair from TXT records.
func txtValue(records []string, key string) string {
	prefix := key + "="
	for _, r := range records {
		if strings.HasPrefix(r, prefix) {
			return strings.TrimPrefix(r, prefix)
		}
	}
	return ""
}

// mergeAddresses combines address lists without duplicates.
func mergeAddresses(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[a] = struct{}{}
	}
	for _, a := range extra {
		if _, ok := seen[a]; !ok {
			existing = append(existing, a)
			seen[a] = struct{}{}
		}
	}
	return existing
}
