// Package otpnet wraps the dual-stack UDP sockets and multicast groups
// OTP producers and consumers join and send on, implementing the
// IPv4Only/IPv6Only/IPv4And6 model of ANSI E1.59 §4.5 on top of
// golang.org/x/net/ipv4 and golang.org/x/net/ipv6 for portable multicast
// group management.
package otpnet

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	otp "github.com/burgrp-go/otp/pkg"
)

// Datagram is one received UDP payload plus its source address and
// family, handed to the producer/consumer engine's socket-callback
// executor (ANSI E1.59 §5).
type Datagram struct {
	Data []byte
	Addr *net.UDPAddr
	IPv6 bool
}

// maxDatagramSize bounds a single read; OTP datagrams are never larger
// than codec.MaxUDPPayload but a socket read buffer is sized generously
// above it to tolerate a jumbo-frame deployment.
const maxDatagramSize = 9000

// Socket owns one UDP connection, optionally joined to IPv4 and/or IPv6
// multicast groups, and delivers received datagrams on a channel.
type Socket struct {
	conn     *net.UDPConn
	pktConn4 *ipv4.PacketConn
	pktConn6 *ipv6.PacketConn
	received chan Datagram
	done     chan struct{}
}

// Open binds a UDP socket on port (0 = any free port) and returns a
// Socket ready to join multicast groups and send/receive.
func Open(port int) (*Socket, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", otp.ErrCouldNotBind, err)
	}
	return &Socket{
		conn:     conn,
		received: make(chan Datagram, 64),
		done:     make(chan struct{}),
	}, nil
}

// LocalPort returns the port the socket is actually bound to.
func (s *Socket) LocalPort() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

// JoinIPv4 joins the IPv4 multicast group addr on every multicast-capable
// interface. It sets no address-reuse option; Open binds the port with a
// plain net.ListenUDP.
func (s *Socket) JoinIPv4(group net.IP, ifaces []net.Interface) error {
	pc := ipv4.NewPacketConn(s.conn)
	for _, iface := range ifaces {
		if err := pc.JoinGroup(&iface, &net.UDPAddr{IP: group}); err != nil {
			return fmt.Errorf("%w: ipv4 group on %s: %v", otp.ErrCouldNotJoin, iface.Name, err)
		}
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		return fmt.Errorf("%w: %v", otp.ErrCouldNotAssignMulticastInterface, err)
	}
	s.pktConn4 = pc
	log.Debugf("otpnet: joined ipv4 group %s on %d interfaces", group, len(ifaces))
	return nil
}

// JoinIPv6 joins the IPv6 multicast group addr on every multicast-capable
// interface.
func (s *Socket) JoinIPv6(group net.IP, ifaces []net.Interface) error {
	pc := ipv6.NewPacketConn(s.conn)
	for _, iface := range ifaces {
		if err := pc.JoinGroup(&iface, &net.UDPAddr{IP: group}); err != nil {
			return fmt.Errorf("%w: ipv6 group on %s: %v", otp.ErrCouldNotJoin, iface.Name, err)
		}
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		return fmt.Errorf("%w: %v", otp.ErrCouldNotAssignMulticastInterface, err)
	}
	s.pktConn6 = pc
	log.Debugf("otpnet: joined ipv6 group %s on %d interfaces", group, len(ifaces))
	return nil
}

// LeaveIPv4 leaves group on every interface previously joined via
// JoinIPv4. Errors from the individual leaves are discarded, so the
// caller is not told whether the group was actually left.
func (s *Socket) LeaveIPv4(group net.IP, ifaces []net.Interface) {
	if s.pktConn4 == nil {
		return
	}
	for _, iface := range ifaces {
		_ = s.pktConn4.LeaveGroup(&iface, &net.UDPAddr{IP: group})
	}
}

// LeaveIPv6 is LeaveIPv4's IPv6 counterpart.
func (s *Socket) LeaveIPv6(group net.IP, ifaces []net.Interface) {
	if s.pktConn6 == nil {
		return
	}
	for _, iface := range ifaces {
		_ = s.pktConn6.LeaveGroup(&iface, &net.UDPAddr{IP: group})
	}
}

// SendTo writes data to dst. Sends happen outside any engine lock per
// ANSI E1.59 §5 ("Pre-built outgoing datagrams are captured under the
// mutex, then transmitted outside it").
func (s *Socket) SendTo(data []byte, dst *net.UDPAddr) error {
	_, err := s.conn.WriteToUDP(data, dst)
	return err
}

// Received returns the channel of datagrams read off the socket.
func (s *Socket) Received() <-chan Datagram {
	return s.received
}

// Serve runs the read loop until Close is called. It is meant to run on
// the component's dedicated socket-callback executor (ANSI E1.59 §5), one
// goroutine per Socket.
func (s *Socket) Serve() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Debugf("otpnet: %v: %v", otp.ErrCouldNotReceive, err)
				continue
			}
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case s.received <- Datagram{Data: data, Addr: addr, IPv6: addr.IP.To4() == nil}:
		case <-s.done:
			return
		}
	}
}

// Close cancels the read loop and releases the underlying connection.
// In-flight datagrams already queued on Received may still be delivered,
// matching ANSI E1.59 §5's cancellation policy ("In-flight datagrams may
// still be delivered to observers; no guarantee after stop returns").
func (s *Socket) Close() error {
	close(s.done)
	return s.conn.Close()
}

// MulticastInterfaces returns every up, multicast-capable interface on
// the host, used as the default join/leave target when the caller hasn't
// pinned a specific interface.
func MulticastInterfaces() ([]net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("otpnet: list interfaces: %w", err)
	}
	var out []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		out = append(out, iface)
	}
	return out, nil
}
