// Package server implements the Arrakis websocket backend: a single
// endpoint that accepts JSON frames, dispatches them by method, and
// streams completion deltas back on the same connection.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/chamber-ai/william/src/arrakis"
	"github.com/chamber-ai/william/src/storage"
)

// Config wires the server's collaborators.
type Config struct {
	Store    *storage.Store
	Streamer Streamer
	// Namer is optional; GUID names survive when nil.
	Namer Namer
	// Embedder is optional; completions skip retrieval when nil.
	Embedder Embedder
	Prompts  *PromptStore
	Logger   *slog.Logger
}

// Server handles Arrakis websocket connections.
type Server struct {
	store    *storage.Store
	streamer Streamer
	namer    Namer
	embedder Embedder
	prompts  *PromptStore
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// wsConn serializes writes to one websocket connection; completions
// stream from their own goroutine while pings keep arriving.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    cfg.Store,
		streamer: cfg.Streamer,
		namer:    cfg.Namer,
		embedder: cfg.Embedder,
		prompts:  cfg.Prompts,
		logger:   logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs the frame loop until the peer
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("client connected", "remote", conn.RemoteAddr())
	c := &wsConn{conn: conn}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Info("client disconnected", "remote", conn.RemoteAddr(), "error", err)
			return
		}
		s.dispatch(r.Context(), c, data)
	}
}

// dispatch parses one frame and handles it. Invalid frames are logged
// and dropped; the connection stays up.
func (s *Server) dispatch(ctx context.Context, c *wsConn, data []byte) {
	req, err := arrakis.ParseRequest(data)
	if err != nil {
		s.logger.Warn("discarding invalid frame", "error", err)
		return
	}

	switch r := req.(type) {
	case arrakis.PingRequest:
		s.respond(c, "Ping", arrakis.PingResponse{Ping: arrakis.Ping{Body: "pong"}})

	case arrakis.ConversationListRequest:
		convs, err := s.store.ListConversations()
		if err != nil {
			s.sendError(c, "ConversationList", err)
			return
		}
		s.respond(c, "ConversationList", arrakis.ConversationListResponse{
			ConversationList: arrakis.ConversationList{Conversations: convs},
		})

	case arrakis.LoadRequest:
		conv, err := s.store.GetConversation(r.ID)
		if err != nil {
			s.sendError(c, "Load", err)
			return
		}
		s.respond(c, "Load", arrakis.LoadResponse{Conversation: conv})

	case arrakis.SystemPromptRequest:
		s.handleSystemPrompt(c, r.SystemPrompt)

	case arrakis.CompletionRequest:
		s.runCompletion(ctx, c, r.Conversation)

	case arrakis.ForkRequest:
		s.runFork(ctx, c, r.Fork)

	default:
		s.logger.Warn("unhandled request", "method", req.Method())
	}
}

func (s *Server) handleSystemPrompt(c *wsConn, req arrakis.SystemPrompt) {
	if req.Write {
		if err := s.prompts.Write(req.Content); err != nil {
			s.sendError(c, "SystemPrompt", err)
			return
		}
		s.respond(c, "SystemPrompt", arrakis.SystemPromptResponse{SystemPrompt: arrakis.SystemPrompt{Content: req.Content, Write: true}})
		return
	}

	content, err := s.prompts.Read()
	if err != nil {
		s.sendError(c, "SystemPrompt", err)
		return
	}
	s.respond(c, "SystemPrompt", arrakis.SystemPromptResponse{SystemPrompt: arrakis.SystemPrompt{Content: content}})
}

// respond writes a response frame, logging failures.
func (s *Server) respond(c *wsConn, op string, resp arrakis.Response) {
	if err := s.sendResponse(c, resp); err != nil {
		s.logger.Warn("failed to write response", "op", op, "error", err)
	}
}

func (s *Server) sendResponse(c *wsConn, resp arrakis.Response) error {
	data, err := arrakis.EncodeResponse(resp)
	if err != nil {
		return err
	}
	return c.write(data)
}

// sendError reports an operation failure to the client without dropping
// the connection.
func (s *Server) sendError(c *wsConn, op string, err error) {
	s.logger.Error("operation failed", "op", op, "error", err)
	s.respond(c, op, arrakis.ErrorResponse{WilliamError: arrakis.WilliamError{
		ErrorType: op,
		Message:   err.Error(),
	}})
}
