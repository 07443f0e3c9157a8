package socksproxy

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	mnet "mwtunnel/common/net"
	"mwtunnel/internal/mcproto"
)

const udpReadDeadline = 10 * time.Second

// zeroUDPHeader is the SOCKS UDP reply header with ATYP set to IPv4 (0x01)
// and RSV/FRAG/ADDR/PORT all zeroed, used on every relayed response.
var zeroUDPHeader = []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// handleUDPAssociate binds an auxiliary UDP relay socket, replies with its
// address, and proxies datagrams one stream per packet until the TCP
// control connection closes.
func (s *Server) handleUDPAssociate(ctrl net.Conn) {
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		s.log.Error("udp associate: bind relay socket: %v", err)
		s.reply(ctrl, replyFailure)
		return
	}
	defer udpConn.Close()

	addr := udpConn.LocalAddr().(*net.UDPAddr)
	s.replyUDPBound(ctrl, addr)

	go func() {
		buf := make([]byte, 1)
		ctrl.Read(buf) // control connection is otherwise idle; blocks until closed or errors
		udpConn.Close()
	}()

	s.udpRelayLoop(udpConn)
}

func (s *Server) replyUDPBound(conn net.Conn, addr *net.UDPAddr) {
	msg := make([]byte, 0, 10)
	msg = append(msg, version5, replySuccess, 0x00, atypIPv4)
	msg = append(msg, addr.IP.To4()...)
	portBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(portBuf, uint16(addr.Port))
	msg = append(msg, portBuf...)
	conn.Write(msg)
}

func (s *Server) udpRelayLoop(udpConn *net.UDPConn) {
	buf := make([]byte, 64*1024)
	for {
		n, from, err := udpConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		packet := make([]byte, n)
		copy(packet, buf[:n])
		go s.relayDatagram(udpConn, from, packet)
	}
}

func (s *Server) relayDatagram(udpConn *net.UDPConn, from *net.UDPAddr, packet []byte) {
	dest, payload, err := parseUDPRequest(packet)
	if err != nil {
		s.log.Debug("udp associate: %v", err)
		return
	}

	cur := s.supervisor.Current()
	if cur == nil {
		s.log.Debug("udp associate: no current session")
		return
	}
	stream, err := cur.OpenStream()
	if err != nil {
		s.log.Debug("udp associate: open stream: %v", err)
		return
	}
	defer stream.Close()

	if err := mcproto.WriteString(stream, "udp:"+dest.NetAddr()); err != nil {
		s.log.Debug("udp associate: write destination: %v", err)
		return
	}
	if err := writeFramedPayload(stream, payload); err != nil {
		s.log.Debug("udp associate: write payload: %v", err)
		return
	}

	stream.SetReadDeadline(time.Now().Add(udpReadDeadline))
	response, err := readFramedPayload(stream)
	if err != nil {
		s.log.Debug("udp associate: read response: %v", err)
		return
	}

	reply := make([]byte, 0, len(zeroUDPHeader)+len(response))
	reply = append(reply, zeroUDPHeader...)
	reply = append(reply, response...)
	udpConn.WriteToUDP(reply, from)
}

// parseUDPRequest parses the SOCKS UDP header: RSV(2) FRAG(1) ATYP(1)
// DST.ADDR DST.PORT PAYLOAD. A non-zero FRAG drops the packet.
func parseUDPRequest(packet []byte) (mnet.Destination, []byte, error) {
	if len(packet) < 4 {
		return mnet.Destination{}, nil, fmt.Errorf("short udp header")
	}
	if packet[2] != 0x00 {
		return mnet.Destination{}, nil, fmt.Errorf("fragmented udp datagram dropped")
	}
	atyp := packet[3]
	off := 4

	var host string
	switch atyp {
	case atypIPv4:
		if len(packet) < off+4 {
			return mnet.Destination{}, nil, fmt.Errorf("short ipv4 address")
		}
		host = net.IP(packet[off : off+4]).String()
		off += 4
	case atypDomain:
		if len(packet) < off+1 {
			return mnet.Destination{}, nil, fmt.Errorf("short domain length")
		}
		dl := int(packet[off])
		off++
		if len(packet) < off+dl {
			return mnet.Destination{}, nil, fmt.Errorf("short domain")
		}
		host = string(packet[off : off+dl])
		off += dl
	case atypIPv6:
		if len(packet) < off+16 {
			return mnet.Destination{}, nil, fmt.Errorf("short ipv6 address")
		}
		host = net.IP(packet[off : off+16]).String()
		off += 16
	default:
		return mnet.Destination{}, nil, fmt.Errorf("unsupported address type %d", atyp)
	}

	if len(packet) < off+2 {
		return mnet.Destination{}, nil, fmt.Errorf("short port")
	}
	port := binary.BigEndian.Uint16(packet[off : off+2])
	off += 2

	return mnet.UDPDestination(host, port), packet[off:], nil
}

func writeFramedPayload(w net.Conn, payload []byte) error {
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(payload)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFramedPayload(r net.Conn) ([]byte, error) {
	lenBuf := make([]byte, 2)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf)
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
