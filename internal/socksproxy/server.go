// Package socksproxy is a local SOCKS5 front-end (CONNECT and UDP
// ASSOCIATE) that feeds the tunnel's current session.
package socksproxy

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	mnet "mwtunnel/common/net"
	"mwtunnel/common/ioutil"
	"mwtunnel/internal/logger"
	"mwtunnel/internal/mcproto"
	"mwtunnel/internal/session"
	"mwtunnel/internal/splittunnel"
)

const (
	version5      = 0x05
	noAuth        = 0x00
	cmdConnect    = 0x01
	cmdUDPAssoc   = 0x03
	atypIPv4      = 0x01
	atypDomain    = 0x03
	atypIPv6      = 0x04
	replySuccess  = 0x00
	replyFailure  = 0x01
	replyHostDown = 0x04
)

// Server is one SOCKS5 listener bound to local_port.
type Server struct {
	listen     string
	listener   net.Listener
	supervisor *session.Supervisor
	matcher    *splittunnel.Matcher
	log        *logger.Logger

	closeCh chan struct{}
}

// New builds a SOCKS5 server; call Start to begin accepting.
func New(listen string, supervisor *session.Supervisor, matcher *splittunnel.Matcher) *Server {
	return &Server{
		listen:     listen,
		supervisor: supervisor,
		matcher:    matcher,
		log:        logger.Named("SOCKS5:" + listen),
		closeCh:    make(chan struct{}),
	}
}

// Start binds the listener and begins the accept loop in a new goroutine.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("socksproxy: listen %s: %w", s.listen, err)
	}
	s.listener = l
	s.log.Info("listening on %s", s.listen)
	go s.acceptLoop()
	return nil
}

// Close stops the accept loop; in-flight connections finish on their own.
func (s *Server) Close() error {
	close(s.closeCh)
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
				s.log.Error("accept: %v", err)
				continue
			}
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	if err := s.methodSelect(conn); err != nil {
		s.log.Debug("method select failed: %v", err)
		return
	}

	cmd, dest, err := s.readRequest(conn)
	if err != nil {
		s.log.Debug("read request failed: %v", err)
		s.reply(conn, replyFailure)
		return
	}

	switch cmd {
	case cmdConnect:
		s.handleConnect(conn, dest)
	case cmdUDPAssoc:
		s.handleUDPAssociate(conn)
	default:
		s.log.Debug("unsupported command 0x%02X", cmd)
	}
}

func (s *Server) methodSelect(conn net.Conn) error {
	hdr := make([]byte, 2)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		return err
	}
	if hdr[0] != version5 {
		return fmt.Errorf("unsupported SOCKS version %d", hdr[0])
	}
	methods := make([]byte, hdr[1])
	if _, err := io.ReadFull(conn, methods); err != nil {
		return err
	}
	_, err := conn.Write([]byte{version5, noAuth})
	return err
}

func (s *Server) readRequest(conn net.Conn) (byte, mnet.Destination, error) {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		return 0, mnet.Destination{}, err
	}
	if hdr[0] != version5 {
		return 0, mnet.Destination{}, fmt.Errorf("unsupported version %d", hdr[0])
	}
	cmd := hdr[1]
	atyp := hdr[3]

	var host string
	switch atyp {
	case atypIPv4:
		b := make([]byte, 4)
		if _, err := io.ReadFull(conn, b); err != nil {
			return 0, mnet.Destination{}, err
		}
		host = net.IP(b).String()
	case atypDomain:
		lb := make([]byte, 1)
		if _, err := io.ReadFull(conn, lb); err != nil {
			return 0, mnet.Destination{}, err
		}
		b := make([]byte, lb[0])
		if _, err := io.ReadFull(conn, b); err != nil {
			return 0, mnet.Destination{}, err
		}
		host = string(b)
	case atypIPv6:
		b := make([]byte, 16)
		if _, err := io.ReadFull(conn, b); err != nil {
			return 0, mnet.Destination{}, err
		}
		host = net.IP(b).String()
	default:
		return 0, mnet.Destination{}, fmt.Errorf("unsupported address type %d", atyp)
	}

	pb := make([]byte, 2)
	if _, err := io.ReadFull(conn, pb); err != nil {
		return 0, mnet.Destination{}, err
	}
	port := binary.BigEndian.Uint16(pb)

	return cmd, mnet.TCPDestination(host, port), nil
}

func (s *Server) reply(conn net.Conn, rep byte) {
	msg := []byte{version5, rep, 0x00, atypIPv4, 0, 0, 0, 0, 0, 0}
	conn.Write(msg)
}

func (s *Server) handleConnect(conn net.Conn, dest mnet.Destination) {
	if dest.IsIPLiteral() && s.matcher.ShouldBypass(dest.Address) {
		s.dialDirect(conn, dest)
		return
	}

	cur := s.supervisor.Current()
	if cur == nil {
		s.log.Debug("no current session for %s", dest.NetAddr())
		s.reply(conn, replyHostDown)
		return
	}

	stream, err := cur.OpenStream()
	if err != nil {
		s.log.Debug("open stream failed: %v", err)
		s.reply(conn, replyHostDown)
		return
	}
	defer stream.Close()

	if err := mcproto.WriteString(stream, dest.NetAddr()); err != nil {
		s.log.Debug("write destination failed: %v", err)
		s.reply(conn, replyFailure)
		return
	}

	s.reply(conn, replySuccess)
	ioutil.CopyBidirectional(conn, stream)
}

func (s *Server) dialDirect(conn net.Conn, dest mnet.Destination) {
	out, err := net.Dial("tcp", dest.NetAddr())
	if err != nil {
		s.log.Debug("direct dial failed: %v", err)
		s.reply(conn, replyHostDown)
		return
	}
	defer out.Close()

	s.reply(conn, replySuccess)
	ioutil.CopyBidirectional(conn, out)
}
