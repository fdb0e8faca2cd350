package server

import (
	"fmt"
	"math/rand/v2"
	"net"
	"os"
)

// Resolver looks up the addresses of a host name.
type Resolver func(host string) ([]net.IP, error)

// SourceLabel returns label unchanged for loopback senders. Otherwise it appends
// "@addr" with the first IPv4 address of this host so receivers can tell
// several machines apart.
func SourceLabel(label string, local bool, resolve Resolver) string {
	if local || label == "" {
		return label
	}
	if resolve == nil {
		resolve = net.LookupIP
	}
	return fmt.Sprintf("%s@%s", label, hostAddress(resolve))
}

func hostAddress(resolve Resolver) string {
	hostname, err := os.Hostname()
	if err == nil {
		for _, name := range []string{hostname, hostname + ".local"} {
			if ip := firstIPv4(resolve, name); ip != nil {
				return ip.String()
			}
		}
	}
	return randomIPv4().String()
}

func firstIPv4(resolve Resolver, host string) net.IP {
	ips, err := resolve(host)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}

func randomIPv4() net.IP {
	r := rand.Uint32()
	return net.IPv4(byte(r>>24), byte(r>>16), byte(r>>8), byte(r))
}

// ConfigureSource names this server after label using the first UDP channel.
func (s *CursorServer) ConfigureSource(label string, resolve Resolver) {
	local := true
	if u := s.udp[ChannelUDPOne]; u != nil {
		local = u.IsLocal()
	}
	s.SetSourceName(SourceLabel(label, local, resolve))
}
