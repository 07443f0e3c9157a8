// Package httpproxy is a local HTTP CONNECT-only proxy front-end that
// feeds the tunnel's current session.
package httpproxy

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"

	mnet "mwtunnel/common/net"
	"mwtunnel/common/ioutil"
	"mwtunnel/internal/logger"
	"mwtunnel/internal/mcproto"
	"mwtunnel/internal/session"
	"mwtunnel/internal/splittunnel"
)

// Server is one HTTP CONNECT listener bound to local_port.
type Server struct {
	listen     string
	listener   net.Listener
	supervisor *session.Supervisor
	matcher    *splittunnel.Matcher
	log        *logger.Logger

	closeCh chan struct{}
}

// New builds an HTTP CONNECT server; call Start to begin accepting.
func New(listen string, supervisor *session.Supervisor, matcher *splittunnel.Matcher) *Server {
	return &Server{
		listen:     listen,
		supervisor: supervisor,
		matcher:    matcher,
		log:        logger.Named("HTTPProxy:" + listen),
		closeCh:    make(chan struct{}),
	}
}

func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("httpproxy: listen %s: %w", s.listen, err)
	}
	s.listener = l
	s.log.Info("listening on %s", s.listen)
	go s.acceptLoop()
	return nil
}

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

	reader := bufio.NewReader(conn)
	req, err := http.ReadRequest(reader)
	if err != nil {
		s.log.Debug("read request: %v", err)
		return
	}

	if req.Method != http.MethodConnect {
		conn.Write([]byte("HTTP/1.1 405 Method Not Allowed\r\n\r\n"))
		return
	}

	host, portStr, err := net.SplitHostPort(req.Host)
	if err != nil {
		conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		return
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		return
	}
	dest := mnet.TCPDestination(host, uint16(port))

	if dest.IsIPLiteral() && s.matcher.ShouldBypass(dest.Address) {
		s.tunnelDirect(conn, dest)
		return
	}
	s.tunnelStream(conn, dest)
}

func (s *Server) tunnelDirect(conn net.Conn, dest mnet.Destination) {
	out, err := net.Dial("tcp", dest.NetAddr())
	if err != nil {
		conn.Write([]byte("HTTP/1.1 502 Bad Gateway\r\n\r\n"))
		return
	}
	defer out.Close()

	conn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n"))
	ioutil.CopyBidirectional(conn, out)
}

func (s *Server) tunnelStream(conn net.Conn, dest mnet.Destination) {
	cur := s.supervisor.Current()
	if cur == nil {
		conn.Write([]byte("HTTP/1.1 502 Bad Gateway\r\n\r\n"))
		return
	}
	stream, err := cur.OpenStream()
	if err != nil {
		conn.Write([]byte("HTTP/1.1 502 Bad Gateway\r\n\r\n"))
		return
	}
	defer stream.Close()

	if err := mcproto.WriteString(stream, dest.NetAddr()); err != nil {
		conn.Write([]byte("HTTP/1.1 502 Bad Gateway\r\n\r\n"))
		return
	}

	conn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n"))
	ioutil.CopyBidirectional(conn, stream)
}
