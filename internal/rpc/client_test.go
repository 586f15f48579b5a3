package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcjson"

	clierr "github.com/bitcli/bitcli/internal/errors"
)

func staticCredential(user, pass string) CredentialFunc {
	return func() (string, string, error) { return user, pass, nil }
}

func clientFor(t *testing.T, ts *httptest.Server, credential CredentialFunc, gate *Gate) *Client {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}
	return New(u.Hostname(), uint16(port), 5*time.Second, credential, gate)
}

func TestCallReturnsRawResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req btcjson.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Method != "getblockcount" {
			t.Errorf("method = %q, want getblockcount", req.Method)
		}
		w.Write([]byte(`{"result":840000,"error":null,"id":1}`))
	}))
	defer ts.Close()

	client := clientFor(t, ts, staticCredential("u", "p"), nil)
	defer client.Close()

	result, err := client.Call(context.Background(), "getblockcount", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(result) != "840000" {
		t.Fatalf("result = %s, want 840000", result)
	}
}

func TestCallSendsBasicAuthAndParams(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "hunter2" {
			t.Errorf("basic auth = %q:%q ok=%v", user, pass, ok)
		}
		var req btcjson.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Params) != 2 {
			t.Errorf("params = %v, want two", req.Params)
		}
		if string(req.Params[0]) != "1000" {
			t.Errorf("first param = %s, want the raw number 1000", req.Params[0])
		}
		if string(req.Params[1]) != `"addr"` {
			t.Errorf("second param = %s, want a JSON string", req.Params[1])
		}
		w.Write([]byte(`{"result":null,"error":null,"id":1}`))
	}))
	defer ts.Close()

	client := clientFor(t, ts, staticCredential("alice", "hunter2"), nil)
	defer client.Close()

	_, err := client.Call(context.Background(), "generatetoaddress", []any{json.RawMessage("1000"), "addr"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestCallNamedSendsObjectParams(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string                     `json:"method"`
			Params map[string]json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if string(req.Params["height"]) != "7" {
			t.Errorf("height param = %s, want 7", req.Params["height"])
		}
		w.Write([]byte(`{"result":"hash","error":null,"id":1}`))
	}))
	defer ts.Close()

	client := clientFor(t, ts, staticCredential("u", "p"), nil)
	defer client.Close()

	result, err := client.CallNamed(context.Background(), "getblockhash", map[string]any{"height": json.RawMessage("7")})
	if err != nil {
		t.Fatalf("CallNamed: %v", err)
	}
	if string(result) != `"hash"` {
		t.Fatalf("result = %s", result)
	}
}

func TestCallRelaysNodeErrorRidingStatus500(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"result":null,"error":{"code":-18,"message":"Requested wallet does not exist or is not loaded"},"id":1}`))
	}))
	defer ts.Close()

	client := clientFor(t, ts, staticCredential("u", "p"), nil)
	defer client.Close()

	_, err := client.Call(context.Background(), "getwalletinfo", nil)
	if err == nil {
		t.Fatal("expected node error")
	}
	cliErr, ok := clierr.As(err)
	if !ok || cliErr.Kind != clierr.KindRPC {
		t.Fatalf("expected KindRPC, got %v", err)
	}
	if cliErr.RPC.Code != -18 {
		t.Fatalf("code = %d, want -18", cliErr.RPC.Code)
	}
	if clierr.ExitCode(err) != 18 {
		t.Fatalf("exit code = %d, want 18", clierr.ExitCode(err))
	}
}

func TestCallAuthRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := clientFor(t, ts, staticCredential("u", "wrong"), nil)
	defer client.Close()

	_, err := client.Call(context.Background(), "getblockcount", nil)
	cliErr, ok := clierr.As(err)
	if !ok || cliErr.Kind != clierr.KindAuth {
		t.Fatalf("expected KindAuth, got %v", err)
	}
	if cliErr.Message != "Authorization failed: Incorrect rpcuser or rpcpassword" {
		t.Fatalf("message = %q", cliErr.Message)
	}
}

func TestCallConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	client := clientFor(t, ts, staticCredential("u", "p"), nil)
	defer client.Close()

	_, err := client.Call(context.Background(), "getblockcount", nil)
	cliErr, ok := clierr.As(err)
	if !ok || cliErr.Kind != clierr.KindConnect {
		t.Fatalf("expected KindConnect, got %v", err)
	}
	if !strings.Contains(cliErr.Message, "Could not connect to the server") {
		t.Fatalf("message = %q", cliErr.Message)
	}
}

func TestCallBusyNodeIsConnectFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Work queue depth exceeded"))
	}))
	defer ts.Close()

	client := clientFor(t, ts, staticCredential("u", "p"), nil)
	defer client.Close()

	_, err := client.Call(context.Background(), "getblockcount", nil)
	cliErr, ok := clierr.As(err)
	if !ok || cliErr.Kind != clierr.KindConnect {
		t.Fatalf("expected KindConnect for 503, got %v", err)
	}
	if cliErr.Message != "Server response: Work queue depth exceeded" {
		t.Fatalf("message = %q", cliErr.Message)
	}
}

func TestCallUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer ts.Close()

	client := clientFor(t, ts, staticCredential("u", "p"), nil)
	defer client.Close()

	_, err := client.Call(context.Background(), "getblockcount", nil)
	if err == nil || err.Error() != "server returned HTTP error 418" {
		t.Fatalf("err = %v, want HTTP error 418", err)
	}
}

func TestCallEmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	client := clientFor(t, ts, staticCredential("u", "p"), nil)
	defer client.Close()

	_, err := client.Call(context.Background(), "getblockcount", nil)
	if err == nil || err.Error() != "no response from server" {
		t.Fatalf("err = %v, want no response from server", err)
	}
}

func TestForWalletRoutes(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"result":null,"error":null,"id":1}`))
	}))
	defer ts.Close()

	client := clientFor(t, ts, staticCredential("u", "p"), nil)
	defer client.Close()

	ctx := context.Background()
	if _, err := client.Call(ctx, "getblockcount", nil); err != nil {
		t.Fatalf("base call: %v", err)
	}
	if _, err := client.ForWallet("Encrypted").Call(ctx, "getwalletinfo", nil); err != nil {
		t.Fatalf("wallet call: %v", err)
	}
	if _, err := client.ForWallet("").Call(ctx, "getwalletinfo", nil); err != nil {
		t.Fatalf("default wallet call: %v", err)
	}

	want := []string{"/", "/wallet/Encrypted", "/wallet/"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestWaitModeRetriesUntilCookieAppears(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"result":1,"error":null,"id":1}`))
	}))
	defer ts.Close()

	var resolved atomic.Int64
	credential := func() (string, string, error) {
		if resolved.Add(1) < 3 {
			return "", "", clierr.New(clierr.KindCredMissing, "Could not locate RPC credentials")
		}
		return "u", "p", nil
	}

	gate := &Gate{Wait: true, Interval: time.Millisecond}
	client := clientFor(t, ts, credential, gate)
	defer client.Close()

	result, err := client.Call(context.Background(), "getblockcount", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(result) != "1" {
		t.Fatalf("result = %s", result)
	}
	if resolved.Load() != 3 {
		t.Fatalf("credential resolved %d times, want 3", resolved.Load())
	}
	if calls.Load() != 1 {
		t.Fatalf("server reached %d times, want once", calls.Load())
	}
}
