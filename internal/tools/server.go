package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"loan-agent/internal/common/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxMessageSize = 1 << 20

// Server answers Model Context Protocol requests for the tools in a
// Registry, over stdio or HTTP.
type Server struct {
	name     string
	version  string
	registry *Registry
	logger   logger.Logger
}

func NewServer(name, version string, reg *Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Server{
		name:     name,
		version:  version,
		registry: reg,
		logger:   log.With(map[string]interface{}{"server": name}),
	}
}

// HandleMessage processes one JSON-RPC message and returns the encoded
// reply, or nil for notifications.
func (s *Server) HandleMessage(ctx context.Context, data []byte) []byte {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return s.encode(rpcResponse{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &RPCError{Code: CodeParseError, Message: "Parse error"},
		})
	}

	var req rpcRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Method == "" {
		return s.encode(rpcResponse{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &RPCError{Code: CodeInvalidRequest, Message: "Invalid Request"},
		})
	}

	result, rpcErr := s.dispatch(ctx, req)

	if len(req.ID) == 0 {
		return nil
	}
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return s.encode(resp)
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest) (interface{}, *RPCError) {
	s.logger.Debug("rpc request", map[string]interface{}{"method": req.Method})

	switch req.Method {
	case "initialize":
		var params initializeParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
			}
		}
		version := params.ProtocolVersion
		if version == "" {
			version = ProtocolVersion
		}
		s.logger.Info("client initialized", map[string]interface{}{
			"client":          params.ClientInfo.Name,
			"protocolVersion": version,
		})
		return initializeResult{
			ProtocolVersion: version,
			Capabilities: map[string]interface{}{
				"tools": map[string]interface{}{"listChanged": false},
			},
			ServerInfo: serverInfo{Name: s.name, Version: s.version},
		}, nil

	case "notifications/initialized", "notifications/cancelled":
		return struct{}{}, nil

	case "ping":
		return struct{}{}, nil

	case "tools/list":
		return listToolsResult{Tools: s.registry.List()}, nil

	case "tools/call":
		return s.callTool(ctx, req.Params)

	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}
	}
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (interface{}, *RPCError) {
	var params callToolParams
	if len(raw) == 0 {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params", Data: "params required"}
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	}
	if params.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params", Data: "tool name required"}
	}

	result, err := s.registry.Call(ctx, params.Name, params.Arguments)
	if errors.Is(err, ErrToolNotFound) {
		return nil, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("Unknown tool: %s", params.Name)}
	}
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
	return callToolResult{
		Content: []contentBlock{{Type: "text", Text: string(text)}},
		IsError: result.IsError(),
	}, nil
}

func (s *Server) encode(resp rpcResponse) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error"}}`)
	}
	return out
}

// ServeStdio reads newline-delimited messages from in and writes replies to
// out until in is exhausted or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)
	w := bufio.NewWriter(out)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	// Cancelling ctx does not unblock a pending Scan, so the reader goroutine
	// lingers until the next Read on in returns. Callers that need it gone
	// close in themselves.
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

	s.logger.Info("serving on stdio", nil)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			reply := s.HandleMessage(ctx, line)
			if reply == nil {
				continue
			}
			if _, err := w.Write(append(reply, '\n')); err != nil {
				return fmt.Errorf("write reply: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("flush reply: %w", err)
			}
		}
	}
}

// Handler exposes POST /mcp, GET /healthz and GET /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
		if err != nil {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}
		reply := s.HandleMessage(r.Context(), body)
		if reply == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(reply)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"server": s.name,
			"tools":  len(s.registry.List()),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe runs the HTTP transport on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving on http", map[string]interface{}{"address": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
