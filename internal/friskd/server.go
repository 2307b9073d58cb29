package friskd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"frisk/internal/config"
	"frisk/internal/core/match"
	"frisk/internal/model"
	"frisk/internal/version"
)

const DefaultListen = "127.0.0.1:7338"

type Options struct {
	Listen        string
	Logger        *slog.Logger
	PokeInterval  time.Duration
	PokeFiles     int
	FindCacheSize int
	FindDefaults  config.Find
	History       FindHistory
	MaxHistory    int
}

type Server struct {
	opts Options
	log  *slog.Logger
	h    *Handlers

	nextConn atomic.Uint64
	conns    sync.WaitGroup

	mu        sync.Mutex
	listener  net.Listener
	open      map[net.Conn]struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

func NewServer(opts Options) *Server {
	if opts.Listen == "" {
		opts.Listen = DefaultListen
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{
		opts: opts,
		log:  log,
		h: NewHandlers(HandlerOptions{
			Logger:        log,
			PokeInterval:  opts.PokeInterval,
			PokeFiles:     opts.PokeFiles,
			FindCacheSize: opts.FindCacheSize,
			FindDefaults:  opts.FindDefaults,
			History:       opts.History,
			MaxHistory:    opts.MaxHistory,
		}),
		open:   map[net.Conn]struct{}{},
		closed: make(chan struct{}),
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Run() error {
	if s == nil {
		return fmt.Errorf("server is nil")
	}

	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()
	s.log.Info("listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return err
		}
		s.mu.Lock()
		if s.isClosed() {
			s.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		s.open[conn] = struct{}{}
		s.conns.Add(1)
		s.mu.Unlock()
		go s.handleConn(conn)
	}
}

// Close stops accepting, drops open connections and closes every search
// context, waiting for their runs to end.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}

	s.closeOnce.Do(func() { close(s.closed) })

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	for c := range s.open {
		_ = c.Close()
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.conns.Wait()
	s.h.Close()
	return err
}

func (s *Server) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Server) handleConn(conn net.Conn) {
	owner := s.nextConn.Add(1)
	defer func() {
		s.h.CloseOwner(owner)
		s.mu.Lock()
		delete(s.open, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.conns.Done()
	}()

	r := bufio.NewReader(conn)
	w := newLineWriter(conn)
	notify := func(contextID string, n model.Notification) {
		err := w.send(Notification{
			JSONRPC: "2.0",
			Method:  MethodNotify,
			Params:  NotifyParams{ContextID: contextID, Notification: n},
		})
		if err != nil {
			s.log.Debug("notify failed", "context_id", contextID, "err", err)
		}
	}

	for {
		line, err := ReadOneLine(r)
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = w.send(Response{
				JSONRPC: "2.0",
				ID:      json.RawMessage("null"),
				Error:   &ErrorObject{Code: CodeParseError, Message: "parse error"},
			})
			continue
		}

		resp := s.dispatch(owner, notify, req)
		if len(req.ID) == 0 {
			// Notification: no response.
			continue
		}
		if err := w.send(resp); err != nil {
			s.log.Debug("write failed", "owner", owner, "err", err)
			return
		}
	}
}

func (s *Server) dispatch(owner uint64, notify Notifier, req Request) Response {
	resp := Response{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		resp.Error = &ErrorObject{Code: CodeInvalidRequest, Message: "invalid jsonrpc version"}
		return resp
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case "ping":
		result = "pong"
	case "version":
		result = version.String()
	case "context.open":
		result, err = s.h.ContextOpen(owner, notify)
	case "context.close":
		var p ContextParams
		if resp.Error = decodeContext(req, &p, &p.ContextID); resp.Error != nil {
			return resp
		}
		err = s.h.ContextClose(p)
		result = true
	case "search.start":
		var p SearchStartParams
		if resp.Error = decodeContext(req, &p, &p.ContextID); resp.Error != nil {
			return resp
		}
		result, err = s.h.SearchStart(p)
	case "search.stop":
		var p ContextParams
		if resp.Error = decodeContext(req, &p, &p.ContextID); resp.Error != nil {
			return resp
		}
		result, err = s.h.SearchStop(p)
	case "search.status":
		var p ContextParams
		if resp.Error = decodeContext(req, &p, &p.ContextID); resp.Error != nil {
			return resp
		}
		result, err = s.h.SearchStatus(p)
	case "search.entry_at":
		var p EntryAtParams
		if resp.Error = decodeContext(req, &p, &p.ContextID); resp.Error != nil {
			return resp
		}
		var e *model.Entry
		e, err = s.h.EntryAt(p)
		if err == nil {
			// A nil entry still needs an explicit null result.
			resp.Result = json.RawMessage("null")
			if e != nil {
				resp.Result = e
			}
			return resp
		}
	case "search.find":
		var p FindParams
		if resp.Error = decodeContext(req, &p, &p.ContextID); resp.Error != nil {
			return resp
		}
		result, err = s.h.Find(p)
	default:
		resp.Error = &ErrorObject{Code: CodeMethodNotFound, Message: "method not found"}
		return resp
	}

	if err != nil {
		resp.Error = errorObject(err)
		s.log.Debug("request failed", "method", req.Method, "err", err)
		return resp
	}
	resp.Result = result
	return resp
}

// decodeContext unmarshals params into p and requires a context id.
func decodeContext(req Request, p any, contextID *string) *ErrorObject {
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, p); err != nil {
			return &ErrorObject{Code: CodeInvalidParams, Message: "invalid params"}
		}
	}
	if strings.TrimSpace(*contextID) == "" {
		return &ErrorObject{Code: CodeInvalidParams, Message: "context_id is required"}
	}
	return nil
}

func errorObject(err error) *ErrorObject {
	var ce *match.ConfigError
	if errors.As(err, &ce) {
		return &ErrorObject{
			Code:    CodeConfigError,
			Message: ce.Error(),
			Data:    &ErrorData{Field: ce.Field, Pattern: ce.Pattern, Offset: ce.Offset},
		}
	}
	return &ErrorObject{Code: CodeServerError, Message: err.Error()}
}
