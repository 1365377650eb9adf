// Package discovery advertises the jukebox on the local network.
package discovery

import (
	"fmt"
	"net"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

const ServiceType = "_jukebox._tcp"

type Config struct {
	ServiceName string
	Port        int
}

// Advertiser owns a running mDNS responder.
type Advertiser struct {
	server *mdns.Server
}

// Advertise announces the HTTP endpoint until Shutdown is called.
func Advertise(cfg Config) (*Advertiser, error) {
	ips, err := localIPs()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(cfg.ServiceName, ServiceType, "", "", cfg.Port, ips, []string{"path=/api/ws/signal"})
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Info().
		Str("module", "discovery").
		Str("service", cfg.ServiceName).
		Int("port", cfg.Port).
		Msg("advertising mDNS service")
	return &Advertiser{server: server}, nil
}

func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

func localIPs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	return ips, nil
}
