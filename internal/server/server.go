package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/ironsheep/colorgrade-mcp/internal/config"
	"github.com/ironsheep/colorgrade-mcp/internal/imaging"
	"github.com/ironsheep/colorgrade-mcp/internal/publish"
)

var log = commonlog.GetLogger("colorgrade.server")

// Version is reported in the initialize handshake. The CLI overrides it
// with the build version.
var Version = "0.1.0"

// Server handles MCP protocol communication
type Server struct {
	cache *imaging.ImageCache
	cfg   *config.Config
	store publish.Store

	// inflight maps a tools/call request key to the cancel func of its
	// context.
	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	calls    sync.WaitGroup

	writeMu sync.Mutex
	encoder *json.Encoder
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// CancelledParams are the parameters of a notifications/cancelled message.
type CancelledParams struct {
	RequestID interface{} `json:"requestId"`
	Reason    string      `json:"reason,omitempty"`
}

// New creates a new MCP server instance. A nil cfg uses config.Default.
// Publishing is disabled when cfg names no publish target.
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cache:    imaging.NewImageCache(),
		cfg:      cfg,
		inflight: make(map[string]context.CancelFunc),
	}

	store, err := publish.New(cfg.Publish.Dir, cfg.Publish.S3)
	switch {
	case errors.Is(err, publish.ErrNotConfigured):
		log.Debugf("publishing disabled")
	case err != nil:
		return nil, err
	default:
		s.store = store
	}
	return s, nil
}

// Run serves requests read from in, one JSON object per line, and writes
// responses to out. tools/call requests run concurrently; every other method
// is answered in order. Run returns when in is exhausted or ctx is done,
// after in-flight calls have finished.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.encoder = json.NewEncoder(out)

	scanner := bufio.NewScanner(in)
	// Inline recipes and multi-point samples can be large
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	defer s.calls.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("scanner error: %w", err)
				}
				return nil
			}
			s.dispatch(ctx, line)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, line []byte) {
	if len(line) == 0 {
		return
	}

	var req MCPRequest
	if err := json.Unmarshal(line, &req); err != nil {
		log.Errorf("Failed to parse request: %s", err)
		s.write(&MCPResponse{
			JSONRPC: "2.0",
			Error:   &MCPError{Code: -32700, Message: "Parse error", Data: err.Error()},
		})
		return
	}

	if req.ID == nil {
		// Notifications are never answered, whatever the method.
		if resp := s.handleRequest(ctx, &req); resp != nil {
			log.Debugf("dropping response to %s notification", req.Method)
		}
		return
	}
	if req.Method != "tools/call" {
		s.write(s.handleRequest(ctx, &req))
		return
	}

	callCtx, key := s.track(ctx, req.ID)
	s.calls.Add(1)
	go func() {
		defer s.calls.Done()
		defer s.untrack(key)

		resp := s.handleToolsCall(callCtx, &req)
		if callCtx.Err() != nil {
			// Cancelled calls get no response.
			log.Debugf("tools/call %v cancelled", req.ID)
			return
		}
		s.write(resp)
	}()
}

// write serialises one response to the output stream.
func (s *Server) write(resp *MCPResponse) {
	if resp == nil {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.encoder.Encode(resp); err != nil {
		log.Errorf("Failed to encode response: %s", err)
	}
}

// requestKey normalises a JSON-RPC id so that a numeric id and a string id
// with the same text do not collide.
func requestKey(id interface{}) string {
	return fmt.Sprintf("%T:%v", id, id)
}

func (s *Server) track(ctx context.Context, id interface{}) (context.Context, string) {
	key := requestKey(id)
	callCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.inflight[key] = cancel
	s.mu.Unlock()
	return callCtx, key
}

func (s *Server) untrack(key string) {
	s.mu.Lock()
	cancel, ok := s.inflight[key]
	delete(s.inflight, key)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// cancel stops the in-flight tools/call with the given id. It reports
// whether a call was found.
func (s *Server) cancel(id interface{}) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[requestKey(id)]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "notifications/cancelled":
		s.handleCancelled(req)
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		if req.ID == nil {
			// Unknown notifications are ignored.
			return nil
		}
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "colorgrade-mcp",
				"version": Version,
			},
		},
	}
}

func (s *Server) handleCancelled(req *MCPRequest) {
	var p CancelledParams
	if err := json.Unmarshal(req.Params, &p); err != nil || p.RequestID == nil {
		log.Warningf("ignoring malformed notifications/cancelled: %s", string(req.Params))
		return
	}
	if s.cancel(p.RequestID) {
		log.Infof("cancelled request %v: %s", p.RequestID, p.Reason)
	} else {
		log.Debugf("cancel for unknown request %v", p.RequestID)
	}
}
