package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-go/v2"
)

const (
	ServerKey = "defaultkey"
	HttpKey   = "defaulthttpkey"
	Host      = "127.0.0.1"
	Port      = 7350
)

type TestClient struct {
	Client  *nakama.Client
	Session *nakama.Session
	UserID  string
}

func NewTestClient(t *testing.T) *TestClient {
	t.Helper()
	client := nakama.NewClient(ServerKey, Host, Port, false)

	deviceID := fmt.Sprintf("test_device_%d", time.Now().UnixNano())

	session, err := client.AuthenticateDevice(context.Background(), deviceID, true, "")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}

	return &TestClient{
		Client:  client,
		Session: session,
		UserID:  session.UserId,
	}
}

// Call invokes an RPC and returns the raw reply payload.
func (tc *TestClient) Call(id string, payload interface{}) (string, error) {
	body := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return "", err
		}
		body = string(data)
	}
	rpc, err := tc.Client.RpcFunc(context.Background(), tc.Session, id, body)
	if err != nil {
		return "", err
	}
	return rpc.Payload, nil
}

// MustCall invokes an RPC and decodes its JSON reply into out.
func (tc *TestClient) MustCall(t *testing.T, id string, payload interface{}, out interface{}) {
	t.Helper()
	raw, err := tc.Call(id, payload)
	if err != nil {
		t.Fatalf("RPC %s failed: %v", id, err)
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		t.Fatalf("RPC %s returned %q: %v", id, raw, err)
	}
}
