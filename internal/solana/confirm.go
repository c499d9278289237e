package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ConfirmConfig configures the signature-confirmation client.
type ConfirmConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultConfirmConfig returns default confirmation-client configuration.
func DefaultConfirmConfig() ConfirmConfig {
	return ConfirmConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// ConfirmClient waits for transaction confirmation over a WebSocket
// signatureSubscribe stream. Subscriptions are one-shot: the node cancels
// them after delivering the notification.
type ConfirmClient struct {
	endpoint string
	config   ConfirmConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to channel waiting for subscription ID
	pending   map[uint64]chan int64
	pendingMu sync.Mutex

	// waiters maps subscription ID to channel receiving the tx error value
	waiters   map[int64]chan error
	waitersMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewConfirmClient connects to the WebSocket endpoint.
func NewConfirmClient(ctx context.Context, endpoint string, config *ConfirmConfig) (*ConfirmClient, error) {
	cfg := DefaultConfirmConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &ConfirmClient{
		endpoint: endpoint,
		config:   cfg,
		conn:     conn,
		pending:  make(map[uint64]chan int64),
		waiters:  make(map[int64]chan error),
		done:     make(chan struct{}),
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// WaitForSignature blocks until the signature is confirmed or ctx expires.
// A nil return means the transaction landed without error.
func (c *ConfirmClient) WaitForSignature(ctx context.Context, signature string) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": "confirmed"},
		},
	}

	confirmCh := make(chan int64, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = confirmCh
	c.pendingMu.Unlock()

	c.connMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
		return fmt.Errorf("write subscribe: %w", err)
	}

	var subID int64
	select {
	case subID = <-confirmCh:
	case <-c.done:
		return fmt.Errorf("client closed")
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
		return ctx.Err()
	}

	resultCh := make(chan error, 1)
	c.waitersMu.Lock()
	c.waiters[subID] = resultCh
	c.waitersMu.Unlock()

	select {
	case err := <-resultCh:
		return err
	case <-c.done:
		return fmt.Errorf("client closed")
	case <-ctx.Done():
		c.waitersMu.Lock()
		delete(c.waiters, subID)
		c.waitersMu.Unlock()
		return ctx.Err()
	}
}

// Close closes the WebSocket connection.
func (c *ConfirmClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches them to waiters.
func (c *ConfirmClient) readLoop() {
	defer c.wg.Done()

	for !c.closed.Load() {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		c.handleMessage(message)
	}
}

func (c *ConfirmClient) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()

		if ok {
			select {
			case ch <- resp.Result:
			default:
			}
		}
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "signatureNotification" || notif.Params == nil {
		return
	}

	subID := notif.Params.Subscription

	c.waitersMu.Lock()
	ch, ok := c.waiters[subID]
	if ok {
		delete(c.waiters, subID)
	}
	c.waitersMu.Unlock()

	if !ok {
		return
	}

	var result error
	if txErr := notif.Params.Result.Value.Err; txErr != nil {
		result = fmt.Errorf("transaction failed on chain: %v", txErr)
	}

	select {
	case ch <- result:
	default:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *ConfirmClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.conn.WriteMessage(websocket.PingMessage, nil)
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Value struct {
			Err interface{} `json:"err"`
		} `json:"value"`
	} `json:"result"`
}
