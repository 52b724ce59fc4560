package heartbeat

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv6"
)

// SocketOptions are IPv6 per-socket settings applied right after a connection is established.
type SocketOptions struct {
	HopLimit     int // unicast hop limit, 0 keeps the system default
	TrafficClass int // traffic class octet, 0 keeps the system default
}

func (o SocketOptions) isZero() bool { return o.HopLimit == 0 && o.TrafficClass == 0 }

func parseSocketOptions(params map[string]string) (SocketOptions, error) {
	var o SocketOptions
	for key, value := range params {
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return o, fmt.Errorf("uri: invalid tcp %s parameter %q: %w", key, value, err)
		}
		switch key {
		case "hoplimit":
			o.HopLimit = int(n)
		case "tclass":
			o.TrafficClass = int(n)
		default:
			return o, fmt.Errorf("uri: unknown tcp parameter %q", key)
		}
	}
	return o, nil
}

// Apply sets the options on c. c must be an IPv6 socket (e.g. *net.TCPConn dialed over tcp6).
func (o SocketOptions) Apply(c net.Conn) error {
	if o.isZero() {
		return nil
	}
	pc := ipv6.NewConn(c)
	if o.HopLimit != 0 {
		if err := pc.SetHopLimit(o.HopLimit); err != nil {
			return fmt.Errorf("set hop limit: %w", err)
		}
	}
	if o.TrafficClass != 0 {
		if err := pc.SetTrafficClass(o.TrafficClass); err != nil {
			return fmt.Errorf("set traffic class: %w", err)
		}
	}
	return nil
}

// HopLimit reports the unicast hop limit currently configured on c.
func HopLimit(c net.Conn) (int, error) {
	return ipv6.NewConn(c).HopLimit()
}
