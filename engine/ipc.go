package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"mwtunnel/internal/logger"
)

// Request is one newline-delimited JSON IPC request: {id, method, args}.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Response is the matching reply: {id, success, error?, data?}.
type Response struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ServeIPC reads newline-delimited JSON requests from r and writes
// newline-delimited JSON responses to w until r reaches EOF. Methods map
// 1:1 to the Control API.
func (e *Engine) ServeIPC(r io.Reader, w io.Writer) error {
	log := logger.Named("IPC")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			log.Warn("malformed request: %v", err)
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		resp := e.dispatch(req)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("engine: write ipc response: %w", err)
		}
	}
	return scanner.Err()
}

func (e *Engine) dispatch(req Request) Response {
	switch req.Method {
	case "start":
		var args struct {
			LocalPort string `json:"local_port"`
			Server    string `json:"server"`
			Password  string `json:"password"`
			ProxyType string `json:"proxy_type"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return errorResponse(req.ID, err)
		}
		if err := e.Start(args.LocalPort, args.Server, args.Password, ProxyType(args.ProxyType)); err != nil {
			return errorResponse(req.ID, err)
		}
		return Response{ID: req.ID, Success: true}

	case "stop":
		e.Stop()
		return Response{ID: req.ID, Success: true}

	case "is_active":
		return Response{ID: req.ID, Success: true, Data: e.IsActive()}

	case "ping":
		var args struct {
			Server string `json:"server"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return errorResponse(req.ID, err)
		}
		return Response{ID: req.ID, Success: true, Data: e.Ping(args.Server)}

	case "parse_link":
		var args struct {
			Link string `json:"link"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return errorResponse(req.ID, err)
		}
		link, err := ParseLink(args.Link)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return Response{ID: req.ID, Success: true, Data: link}

	case "update_split_rules":
		var args struct {
			Paths []string `json:"paths"`
		}
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return errorResponse(req.ID, err)
		}
		if err := e.UpdateSplitRules(args.Paths); err != nil {
			return errorResponse(req.ID, err)
		}
		return Response{ID: req.ID, Success: true}

	default:
		return errorResponse(req.ID, fmt.Errorf("unknown method %q", req.Method))
	}
}

func errorResponse(id string, err error) Response {
	return Response{ID: id, Success: false, Error: err.Error()}
}
