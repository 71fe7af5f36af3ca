package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feng-zhe/zhechord/internal/logger"
)

// stubHandler records calls and answers with canned values; the server
// tests only exercise dispatch and JSON shapes, not Chord semantics.
type stubHandler struct {
	notified string
	puts     map[string]string
}

func newStubHandler() *stubHandler {
	return &stubHandler{puts: make(map[string]string)}
}

func (s *stubHandler) FindPredecessor(_ context.Context, id string) (string, error) {
	return "0" + id, nil
}
func (s *stubHandler) FindSuccessor(_ context.Context, id string) (string, error) {
	return "1" + id, nil
}
func (s *stubHandler) GetPredecessor(context.Context) (string, error) { return "", nil }
func (s *stubHandler) SetPredecessor(_ context.Context, id string) error {
	return nil
}
func (s *stubHandler) GetSuccessor(context.Context) (string, error) { return "1f", nil }
func (s *stubHandler) SetSuccessor(_ context.Context, id string) error {
	return nil
}
func (s *stubHandler) ClosestPrecedingFinger(_ context.Context, id string) (string, error) {
	return id, nil
}
func (s *stubHandler) Notify(_ context.Context, id string) error {
	s.notified = id
	return nil
}
func (s *stubHandler) Put(_ context.Context, key, value string) error {
	s.puts[key] = value
	return nil
}
func (s *stubHandler) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.puts[key]
	return v, ok, nil
}
func (s *stubHandler) DisplayFingerTable(context.Context) ([]string, error) {
	return []string{"", "01", "03"}, nil
}
func (s *stubHandler) DisplayData(context.Context) (map[string]string, error) {
	return s.puts, nil
}
func (s *stubHandler) DisplayBackupSucc(context.Context) ([]string, error) {
	return []string{"03", "06"}, nil
}

func testServer(t *testing.T) (*httptest.Server, *stubHandler) {
	t.Helper()
	h := newStubHandler()
	srv := NewServer("unused", h, logger.NopLogger{})
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts, h
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServerUnknownPathIs400(t *testing.T) {
	ts, _ := testServer(t)
	resp := postJSON(t, ts.URL+"/no_such_rpc", struct{}{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServerDispatchesIDCalls(t *testing.T) {
	ts, _ := testServer(t)

	resp := postJSON(t, ts.URL+PathFindSuccessor, IDRequest{ID: "5"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out IDResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != "15" {
		t.Errorf("find_successor id = %q, want %q", out.ID, "15")
	}
}

func TestServerReportsEmptyPredecessor(t *testing.T) {
	ts, _ := testServer(t)

	resp := postJSON(t, ts.URL+PathGetPredecessor, struct{}{})
	var out IDResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != "" {
		t.Errorf("get_predecessor on a fresh node = %q, want empty", out.ID)
	}
}

func TestServerPutGetRoundTrip(t *testing.T) {
	ts, h := testServer(t)

	resp := postJSON(t, ts.URL+PathPut, PutRequest{Key: "k", Value: "v"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d, want 200", resp.StatusCode)
	}
	if h.puts["k"] != "v" {
		t.Fatalf("handler did not receive put")
	}

	resp = postJSON(t, ts.URL+PathGet, GetRequest{Key: "k"})
	var out GetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Value != "v" {
		t.Errorf("get value = %q, want %q", out.Value, "v")
	}
}

func TestServerNotifyAndDisplays(t *testing.T) {
	ts, h := testServer(t)

	postJSON(t, ts.URL+PathNotify, IDRequest{ID: "06"})
	if h.notified != "06" {
		t.Errorf("notify delivered %q, want %q", h.notified, "06")
	}

	resp := postJSON(t, ts.URL+PathDisplayFingerTable, struct{}{})
	var list ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Result) != 3 || list.Result[1] != "01" {
		t.Errorf("display_finger_table = %v", list.Result)
	}

	resp = postJSON(t, ts.URL+PathDisplayData, struct{}{})
	var m MapResponse
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Result == nil {
		t.Error("display_data result missing")
	}
}
