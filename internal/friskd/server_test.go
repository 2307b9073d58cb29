package friskd

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestServerPingAndVersion(t *testing.T) {
	s := NewServer(Options{Listen: "127.0.0.1:0"})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	addr := waitAddr(t, s, time.Second)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	if err := enc.Encode(Request{JSONRPC: "2.0", Method: "ping", ID: json.RawMessage("1")}); err != nil {
		t.Fatalf("encode ping: %v", err)
	}
	var pingResp Response
	if err := dec.Decode(&pingResp); err != nil {
		t.Fatalf("decode ping: %v", err)
	}
	if string(pingResp.ID) != "1" || pingResp.Error != nil || pingResp.Result != "pong" {
		t.Fatalf("ping resp=%+v", pingResp)
	}

	if err := enc.Encode(Request{JSONRPC: "2.0", Method: "version", ID: json.RawMessage("2")}); err != nil {
		t.Fatalf("encode version: %v", err)
	}
	var versionResp Response
	if err := dec.Decode(&versionResp); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if string(versionResp.ID) != "2" || versionResp.Error != nil {
		t.Fatalf("version resp=%+v", versionResp)
	}
	if v, ok := versionResp.Result.(string); !ok || v == "" {
		t.Fatalf("version result=%v", versionResp.Result)
	}

	// Close drops the still-open connection.
	_ = s.Close()
	_ = conn.Close()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not stop within 1s after Close")
	}
}

func TestServer_RawEdgeCases(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()

	cases := []struct {
		name string
		raw  string
		code int
	}{
		{"parse_error", `{not json`, CodeParseError},
		{"bad_version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, CodeInvalidRequest},
		{"unknown_method", `{"jsonrpc":"2.0","id":1,"method":"index.build"}`, CodeMethodNotFound},
		{"missing_context", `{"jsonrpc":"2.0","id":1,"method":"search.status","params":{}}`, CodeInvalidParams},
		{"bad_params", `{"jsonrpc":"2.0","id":1,"method":"search.start","params":[1,2]}`, CodeInvalidParams},
		{"unknown_context", `{"jsonrpc":"2.0","id":1,"method":"search.stop","params":{"context_id":"nope"}}`, CodeServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := sendRawRequest(t, addr, tc.raw)
			if resp.Error == nil || resp.Error.Code != tc.code {
				t.Fatalf("resp=%+v want code %d", resp, tc.code)
			}
		})
	}
}

func TestServer_NotificationRequestGetsNoResponse(t *testing.T) {
	addr, cleanup := startTestServer(t)
	defer cleanup()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	w := bufio.NewWriter(conn)
	_, _ = w.WriteString(`{"jsonrpc":"2.0","method":"ping"}` + "\n")
	_, _ = w.WriteString(`{"jsonrpc":"2.0","id":7,"method":"ping"}` + "\n")
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	line, err := ReadOneLine(bufio.NewReader(conn))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(resp.ID) != "7" {
		t.Fatalf("first response should answer id 7, got %s", resp.ID)
	}
}

func startTestServer(t *testing.T) (string, func()) {
	t.Helper()

	s := NewServer(Options{Listen: "127.0.0.1:0", PokeInterval: 10 * time.Millisecond})
	done := make(chan struct{})
	go func() {
		_ = s.Run()
		close(done)
	}()
	addr := waitAddr(t, s, time.Second)
	cleanup := func() {
		_ = s.Close()
		<-done
	}
	return addr, cleanup
}

func sendRawRequest(t *testing.T, addr string, raw string) Response {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(raw + "\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	line, err := ReadOneLine(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp
}

func waitAddr(t *testing.T, s *Server, timeout time.Duration) string {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr := s.Addr(); addr != "" {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start listening in time")
	return ""
}
