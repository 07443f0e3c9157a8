// Package net holds the small destination value type shared by both
// proxy front-ends and the split-tunnel matcher.
package net

import (
	"fmt"
	"net"
	"strconv"
)

// Network is the transport the destination is reached over.
type Network string

const (
	TCP Network = "tcp"
	UDP Network = "udp"
)

// Destination is a parsed proxy target: a network, a host (IP literal or
// domain), and a port.
type Destination struct {
	Network Network
	Address string
	Port    uint16
}

func (d Destination) String() string {
	return fmt.Sprintf("%s:%s:%d", d.Network, d.Address, d.Port)
}

// NetAddr renders "host:port" for use with net.Dial and friends.
func (d Destination) NetAddr() string {
	return net.JoinHostPort(d.Address, strconv.Itoa(int(d.Port)))
}

func TCPDestination(host string, port uint16) Destination {
	return Destination{Network: TCP, Address: host, Port: port}
}

func UDPDestination(host string, port uint16) Destination {
	return Destination{Network: UDP, Address: host, Port: port}
}

// IsIPLiteral reports whether Address parses as an IP address rather than a
// domain name. Only IP-literal destinations are eligible for split-tunnel
// bypass — domain resolution is deferred to the remote end.
func (d Destination) IsIPLiteral() bool {
	return net.ParseIP(d.Address) != nil
}
