package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/address"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	writeWait      = 10 * time.Second
	reconnectDelay = 3 * time.Second
)

// LogNotification is one transaction's log output mentioning the program.
type LogNotification struct {
	Signature string          `json:"signature"`
	Err       json.RawMessage `json:"err"`
	Logs      []string        `json:"logs"`
}

// Failed reports whether the transaction that produced the logs failed.
func (n LogNotification) Failed() bool {
	return !isNullJSON(n.Err)
}

// LogStream follows program logs over the websocket logsSubscribe method and
// reconnects until its context ends.
type LogStream struct {
	url            string
	program        address.PublicKey
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
}

func NewLogStream(wsURL string, program address.PublicKey) *LogStream {
	return &LogStream{
		url:            wsURL,
		program:        program,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: reconnectDelay,
	}
}

func (s *LogStream) Run(ctx context.Context, handle func(LogNotification)) {
	for {
		err := s.session(ctx, handle)
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Warn("ledger: log subscription dropped, reconnecting")

		timer := time.NewTimer(s.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

type subscriptionMessage struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	Params *struct {
		Result contextValue[LogNotification] `json:"result"`
	} `json:"params"`
}

func (s *LogStream) session(ctx context.Context, handle func(LogNotification)) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", s.url, err)
	}
	defer conn.Close()

	subscribe := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []any{
			map[string]any{"mentions": []string{s.program.String()}},
			map[string]any{"commitment": commitmentConfirmed},
		},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	log.WithField("program", s.program.String()).Info("ledger: log subscription open")
	for {
		var msg subscriptionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		switch {
		case msg.Error != nil:
			return errors.Join(errors.New("subscription rejected"), msg.Error)
		case msg.Method == "logsNotification" && msg.Params != nil:
			handle(msg.Params.Result.Value)
		}
	}
}
