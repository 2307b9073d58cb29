package friskd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"frisk/internal/model"
)

const notificationBuffer = 256

type RPCError struct {
	Code    int
	Message string
	Data    *ErrorData
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error (%d): %s", e.Code, e.Message) }

// IsConfig reports whether the server rejected search parameters.
func (e *RPCError) IsConfig() bool { return e != nil && e.Code == CodeConfigError }

type rawMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Client multiplexes calls and server notifications over one connection.
// Notifications must be drained from Notifications or calls will stall
// once the buffer fills.
type Client struct {
	conn   net.Conn
	w      *lineWriter
	nextID atomic.Int64

	mu      sync.Mutex
	pending map[string]chan rawMessage
	err     error

	notes     chan NotifyParams
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:    conn,
		w:       newLineWriter(conn),
		pending: map[string]chan rawMessage{},
		notes:   make(chan NotifyParams, notificationBuffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.readLoop(bufio.NewReader(conn))
	return c, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	c.closeOnce.Do(func() { close(c.closing) })
	err := c.conn.Close()
	<-c.done
	return err
}

// Notifications is closed when the connection ends.
func (c *Client) Notifications() <-chan NotifyParams {
	return c.notes
}

func (c *Client) readLoop(r *bufio.Reader) {
	defer func() {
		c.mu.Lock()
		if c.err == nil {
			c.err = io.ErrClosedPipe
		}
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		close(c.notes)
		close(c.done)
	}()

	for {
		line, err := ReadOneLine(r)
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		var msg rawMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}

		if msg.Method == MethodNotify {
			var p NotifyParams
			if err := json.Unmarshal(msg.Params, &p); err != nil {
				continue
			}
			select {
			case c.notes <- p:
			case <-c.closing:
				return
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[string(msg.ID)]
		delete(c.pending, string(msg.ID))
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

func (c *Client) call(method string, params any, out any) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("client is nil")
	}
	id := strconv.FormatInt(c.nextID.Add(1), 10)
	req := Request{JSONRPC: "2.0", Method: method, ID: json.RawMessage(id)}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		req.Params = b
	}

	ch := make(chan rawMessage, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.w.send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return err
	}

	resp, ok := <-ch
	if !ok {
		c.mu.Lock()
		err := c.err
		c.mu.Unlock()
		return fmt.Errorf("connection closed: %w", err)
	}
	if resp.Error != nil {
		return &RPCError{Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data}
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

func (c *Client) Ping() error {
	var out string
	if err := c.call("ping", nil, &out); err != nil {
		return err
	}
	if out != "pong" {
		return fmt.Errorf("unexpected ping result: %q", out)
	}
	return nil
}

func (c *Client) Version() (string, error) {
	var out string
	if err := c.call("version", nil, &out); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) ContextOpen() (string, error) {
	var out ContextOpenResult
	if err := c.call("context.open", nil, &out); err != nil {
		return "", err
	}
	return out.ContextID, nil
}

func (c *Client) ContextClose(contextID string) error {
	return c.call("context.close", ContextParams{ContextID: contextID}, nil)
}

func (c *Client) SearchStart(contextID string, p model.SearchParams) (model.SearchID, error) {
	var out SearchStartResult
	if err := c.call("search.start", SearchStartParams{ContextID: contextID, Params: p}, &out); err != nil {
		return 0, err
	}
	return out.SearchID, nil
}

func (c *Client) SearchStop(contextID string) (SearchStatusResult, error) {
	var out SearchStatusResult
	err := c.call("search.stop", ContextParams{ContextID: contextID}, &out)
	return out, err
}

func (c *Client) SearchStatus(contextID string) (SearchStatusResult, error) {
	var out SearchStatusResult
	err := c.call("search.status", ContextParams{ContextID: contextID}, &out)
	return out, err
}

// EntryAt returns nil when no entry covers offset.
func (c *Client) EntryAt(contextID string, offset int) (*model.Entry, error) {
	var out *model.Entry
	if err := c.call("search.entry_at", EntryAtParams{ContextID: contextID, Offset: offset}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Find(p FindParams) (FindResult, error) {
	var out FindResult
	err := c.call("search.find", p, &out)
	return out, err
}
