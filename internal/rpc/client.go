package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcjson"

	clierr "github.com/bitcli/bitcli/internal/errors"
	"github.com/bitcli/bitcli/internal/version"
)

// CredentialFunc runs before every attempt, so a cookie that appears or
// rotates between retries is picked up.
type CredentialFunc func() (user, pass string, err error)

// Client speaks single-request JSON-RPC 1.0 to one node over HTTP POST.
type Client struct {
	httpClient *http.Client
	host       string
	endpoint   string
	credential CredentialFunc
	gate       *Gate
	requestID  *atomic.Uint64
}

func New(host string, port uint16, timeout time.Duration, credential CredentialFunc, gate *Gate) *Client {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	if gate == nil {
		gate = &Gate{}
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		host:       addr,
		endpoint:   "http://" + addr + "/",
		credential: credential,
		gate:       gate,
		requestID:  new(atomic.Uint64),
	}
}

// ForWallet derives a client addressing one wallet. The empty name is a
// valid wallet and routes to /wallet/ exactly like any other name.
func (c *Client) ForWallet(name string) *Client {
	derived := *c
	derived.endpoint = c.endpoint + "wallet/" + url.PathEscape(name)
	return &derived
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	reqObj, err := btcjson.NewRequest(btcjson.RpcVersion1, c.nextID(), method, params)
	if err != nil {
		return nil, clierr.Wrap(clierr.KindInternal, "build rpc request", err)
	}
	body, err := json.Marshal(reqObj)
	if err != nil {
		return nil, clierr.Wrap(clierr.KindInternal, "encode rpc request", err)
	}
	return c.dispatch(ctx, body)
}

type namedRequest struct {
	Jsonrpc btcjson.RPCVersion `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  map[string]any     `json:"params"`
	ID      any                `json:"id"`
}

func (c *Client) CallNamed(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(namedRequest{
		Jsonrpc: btcjson.RpcVersion1,
		Method:  method,
		Params:  params,
		ID:      c.nextID(),
	})
	if err != nil {
		return nil, clierr.Wrap(clierr.KindInternal, "encode rpc request", err)
	}
	return c.dispatch(ctx, body)
}

func (c *Client) nextID() uint64 {
	return c.requestID.Add(1)
}

func (c *Client) dispatch(ctx context.Context, body []byte) (json.RawMessage, error) {
	var result json.RawMessage
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		user, pass, err := c.credential()
		if err != nil {
			return err
		}
		result, err = c.post(ctx, user, pass, body)
		return err
	})
	return result, err
}

func (c *Client) post(ctx context.Context, user, pass string, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, clierr.Wrap(clierr.KindInternal, "build http request", err)
	}
	httpReq.SetBasicAuth(user, pass)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, clierr.Wrap(clierr.KindConnect, connectFailedMessage(c.host), err)
	}
	buf, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, clierr.Wrap(clierr.KindConnect, connectFailedMessage(c.host), readErr)
	}

	// Node errors ride JSON bodies on status 400, 404 and 500; those fall
	// through to the decode below.
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, clierr.New(clierr.KindAuth, "Authorization failed: Incorrect rpcuser or rpcpassword")
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, clierr.Newf(clierr.KindConnect, "Server response: %s", bytes.TrimSpace(buf))
	case resp.StatusCode >= 400 &&
		resp.StatusCode != http.StatusBadRequest &&
		resp.StatusCode != http.StatusNotFound &&
		resp.StatusCode != http.StatusInternalServerError:
		return nil, clierr.Newf(clierr.KindInternal, "server returned HTTP error %d", resp.StatusCode)
	case len(bytes.TrimSpace(buf)) == 0:
		return nil, clierr.New(clierr.KindInternal, "no response from server")
	}

	var reply btcjson.Response
	if err := json.Unmarshal(buf, &reply); err != nil {
		return nil, clierr.Wrap(clierr.KindConnect, "couldn't parse reply from server", err)
	}
	if reply.Error != nil {
		return nil, clierr.FromRPC(reply.Error)
	}
	return reply.Result, nil
}

func connectFailedMessage(host string) string {
	return "Could not connect to the server " + host + "\n\n" +
		"Make sure the node you are connecting to is running and that you are connecting to the correct RPC port."
}
