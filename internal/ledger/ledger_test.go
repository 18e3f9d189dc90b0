package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cosmos/btcutil/base58"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"seeker-scratch/internal/address"
)

var (
	testProgram = address.MustParsePublicKey("D6xSi3CG6fK1Y8rgwzvPFob4paPRxebGgR3DW3MiCubf")
	testPlayer  = address.PublicKey{0x11, 0x22, 0x33}
	testHash    = address.PublicKey{0x42, 0x42}.String()
)

type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeRPC answers JSON-RPC calls from per-method handlers and records them.
type fakeRPC struct {
	mu       sync.Mutex
	calls    []rpcCall
	handlers map[string]func(params []json.RawMessage) (any, *RPCError)
}

func newFakeRPC(t *testing.T) (*fakeRPC, *Client) {
	f := &fakeRPC{handlers: map[string]func([]json.RawMessage) (any, *RPCError){}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, NewClient(srv.URL, time.Second, WithPollInterval(5*time.Millisecond))
}

func (f *fakeRPC) on(method string, h func([]json.RawMessage) (any, *RPCError)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeRPC) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *fakeRPC) serve(w http.ResponseWriter, r *http.Request) {
	var call rpcCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := map[string]any{"jsonrpc": "2.0", "id": 1}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	if h := f.handlers[call.Method]; h == nil {
		resp["error"] = &RPCError{Code: -32601, Message: "method not found"}
	} else if result, rpcErr := h(call.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	f.mu.Unlock()
	json.NewEncoder(w).Encode(resp)
}

func wrap(v any) any {
	return map[string]any{"context": map[string]any{"slot": 1}, "value": v}
}

func TestClient_GetAccount(t *testing.T) {
	f, c := newFakeRPC(t)
	payload := []byte{1, 2, 3, 4}
	f.on("getAccountInfo", func(params []json.RawMessage) (any, *RPCError) {
		var addr string
		json.Unmarshal(params[0], &addr)
		if addr != testPlayer.String() {
			return wrap(nil), nil
		}
		return wrap(map[string]any{
			"lamports": 10,
			"data":     []string{base64.StdEncoding.EncodeToString(payload), "base64"},
		}), nil
	})

	data, err := c.GetAccount(context.Background(), testPlayer)
	require.NoError(t, err)
	require.Equal(t, payload, data)

	_, err = c.GetAccount(context.Background(), testProgram)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestClient_GetBalanceAndCheckpoint(t *testing.T) {
	f, c := newFakeRPC(t)
	f.on("getBalance", func([]json.RawMessage) (any, *RPCError) {
		return wrap(1_485_000_000), nil
	})
	f.on("getLatestBlockhash", func([]json.RawMessage) (any, *RPCError) {
		return wrap(map[string]any{"blockhash": testHash, "lastValidBlockHeight": 900}), nil
	})

	bal, err := c.GetBalance(context.Background(), testPlayer)
	require.NoError(t, err)
	require.Equal(t, uint64(1_485_000_000), bal)

	cp, err := c.LatestCheckpoint(context.Background())
	require.NoError(t, err)
	require.Equal(t, Checkpoint{Blockhash: testHash, LastValidBlockHeight: 900}, cp)
}

func TestClient_SubmitProgramError(t *testing.T) {
	f, c := newFakeRPC(t)
	f.on("sendTransaction", func([]json.RawMessage) (any, *RPCError) {
		return nil, &RPCError{
			Code:    -32002,
			Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1770",
		}
	})

	_, err := c.Submit(context.Background(), []byte{1})
	require.Error(t, err)
	require.Equal(t, "Game is currently paused", err.Error())

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	code, ok := ProgramErrorCode(rpcErr.Message)
	require.True(t, ok)
	require.Equal(t, CodeGamePaused, code)
}

func TestClient_SubmitReturnsSignature(t *testing.T) {
	f, c := newFakeRPC(t)
	want := Signature{7, 7, 7}
	f.on("sendTransaction", func(params []json.RawMessage) (any, *RPCError) {
		var encoded string
		json.Unmarshal(params[0], &encoded)
		raw, _ := base64.StdEncoding.DecodeString(encoded)
		if string(raw) != "signed" {
			return nil, &RPCError{Code: -1, Message: "bad payload"}
		}
		return want.String(), nil
	})

	sig, err := c.Submit(context.Background(), []byte("signed"))
	require.NoError(t, err)
	require.Equal(t, want, sig)
}

func TestClient_ConfirmOutcomes(t *testing.T) {
	cp := Checkpoint{Blockhash: testHash, LastValidBlockHeight: 100}

	t.Run("confirmed after pending", func(t *testing.T) {
		f, c := newFakeRPC(t)
		polls := 0
		f.on("getSignatureStatuses", func([]json.RawMessage) (any, *RPCError) {
			polls++
			if polls < 3 {
				return wrap([]any{nil}), nil
			}
			return wrap([]any{map[string]any{"err": nil, "confirmationStatus": "confirmed"}}), nil
		})
		f.on("getBlockHeight", func([]json.RawMessage) (any, *RPCError) { return 50, nil })

		conf, err := c.Confirm(context.Background(), Signature{1}, cp)
		require.NoError(t, err)
		require.Equal(t, StatusConfirmed, conf.Status)
		require.Equal(t, 3, f.count("getSignatureStatuses"))
	})

	t.Run("expired", func(t *testing.T) {
		f, c := newFakeRPC(t)
		f.on("getSignatureStatuses", func([]json.RawMessage) (any, *RPCError) { return wrap([]any{nil}), nil })
		f.on("getBlockHeight", func([]json.RawMessage) (any, *RPCError) { return 101, nil })

		conf, err := c.Confirm(context.Background(), Signature{1}, cp)
		require.NoError(t, err)
		require.Equal(t, StatusExpired, conf.Status)
	})

	t.Run("failed", func(t *testing.T) {
		f, c := newFakeRPC(t)
		f.on("getSignatureStatuses", func([]json.RawMessage) (any, *RPCError) {
			return wrap([]any{map[string]any{
				"err":                map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 6004}}},
				"confirmationStatus": "processed",
			}}), nil
		})
		f.on("getBlockHeight", func([]json.RawMessage) (any, *RPCError) { return 1, nil })

		conf, err := c.Confirm(context.Background(), Signature{1}, cp)
		require.NoError(t, err)
		require.Equal(t, StatusFailed, conf.Status)
		require.Equal(t, "Treasury balance too low for this card type", conf.Err)
	})

	t.Run("caller deadline", func(t *testing.T) {
		f, c := newFakeRPC(t)
		f.on("getSignatureStatuses", func([]json.RawMessage) (any, *RPCError) { return wrap([]any{nil}), nil })
		f.on("getBlockHeight", func([]json.RawMessage) (any, *RPCError) { return 1, nil })

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		_, err := c.Confirm(ctx, Signature{1}, cp)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_GetProgramAccounts(t *testing.T) {
	f, c := newFakeRPC(t)
	other := address.PublicKey{9}
	f.on("getProgramAccounts", func(params []json.RawMessage) (any, *RPCError) {
		var config struct {
			Filters []struct {
				Memcmp struct {
					Offset int    `json:"offset"`
					Bytes  string `json:"bytes"`
				} `json:"memcmp"`
			} `json:"filters"`
		}
		json.Unmarshal(params[1], &config)
		if len(config.Filters) != 1 || config.Filters[0].Memcmp.Bytes != base58.Encode(ProfileAccountDiscriminator[:]) {
			return nil, &RPCError{Code: -1, Message: "unexpected filters"}
		}
		return []any{
			map[string]any{"pubkey": testPlayer.String(), "account": map[string]any{"lamports": 5, "data": []string{"AQI=", "base64"}}},
			map[string]any{"pubkey": "not-a-key", "account": map[string]any{"data": []string{"", "base64"}}},
			map[string]any{"pubkey": other.String(), "account": map[string]any{"lamports": 6, "data": []string{"Aw==", "base64"}}},
		}, nil
	})

	accounts, err := c.GetProgramAccounts(context.Background(), testProgram, ProfileFilter())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, testPlayer, accounts[0].Address)
	require.Equal(t, []byte{1, 2}, accounts[0].Data)
	require.Equal(t, other, accounts[1].Address)
}

func TestClient_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).GetBalance(context.Background(), testPlayer)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=429")
}

func TestCompactU16(t *testing.T) {
	cases := map[int][]byte{
		0:      {0x00},
		0x7f:   {0x7f},
		0x80:   {0x80, 0x01},
		0x3fff: {0xff, 0x7f},
		0x4000: {0x80, 0x80, 0x01},
	}
	for n, want := range cases {
		require.Equal(t, want, appendCompactU16(nil, n), "n=%d", n)
	}
}

func TestNewMessage_BuyAndScratch(t *testing.T) {
	program := NewProgram(address.NewDeriver(testProgram))
	ix := program.BuyAndScratch(testPlayer, 2)

	msg, err := NewMessage(testPlayer, []Instruction{ix}, Checkpoint{Blockhash: testHash})
	require.NoError(t, err)

	require.Equal(t, MessageHeader{NumRequiredSignatures: 1, NumReadonlySignedAccounts: 0, NumReadonlyUnsignedAccounts: 2}, msg.Header)
	require.Equal(t, []address.PublicKey{
		testPlayer,
		program.Deriver().TreasuryAddress(),
		program.Deriver().ProfileAddress(testPlayer),
		address.SystemProgramID,
		testProgram,
	}, msg.AccountKeys)

	require.Len(t, msg.Instructions, 1)
	compiled := msg.Instructions[0]
	require.Equal(t, uint8(4), compiled.ProgramIDIndex)
	require.Equal(t, []uint8{1, 2, 0, 3}, compiled.Accounts)
	require.Equal(t, byte(2), compiled.Data[8])
	require.Equal(t, ixBuyAndScratch[:], compiled.Data[:8])

	tx := NewTransaction(msg)
	_, err = tx.Serialize()
	require.ErrorIs(t, err, ErrMissingSignatures)

	require.Error(t, tx.AddSignature(testProgram, Signature{1}))
	require.NoError(t, tx.AddSignature(testPlayer, Signature{5}))
	raw, err := tx.Serialize()
	require.NoError(t, err)
	require.Equal(t, byte(1), raw[0])
	require.Equal(t, byte(5), raw[1])
	require.Equal(t, msg.Serialize(), raw[1+SignatureLength:])
	require.Equal(t, Signature{5}, tx.Signature())
}

func TestNewMessage_Rejects(t *testing.T) {
	_, err := NewMessage(testPlayer, nil, Checkpoint{Blockhash: testHash})
	require.ErrorIs(t, err, ErrNoInstructions)

	program := NewProgram(address.NewDeriver(testProgram))
	_, err = NewMessage(testPlayer, []Instruction{program.BuyAndScratch(testPlayer, 0)}, Checkpoint{Blockhash: "short"})
	require.ErrorIs(t, err, ErrInvalidBlockhash)
}

func TestUpdateProfileData(t *testing.T) {
	program := NewProgram(address.NewDeriver(testProgram))
	name := "alice"
	ix := program.UpdateProfile(testPlayer, &name, nil)

	want := append([]byte(nil), ixUpdateProfile[:]...)
	want = append(want, 1, 5, 0, 0, 0)
	want = append(want, "alice"...)
	want = append(want, 0)
	require.Equal(t, want, ix.Data)
}

func TestDiscriminatorsDistinct(t *testing.T) {
	seen := map[[8]byte]bool{}
	for _, d := range [][8]byte{ixBuyAndScratch, ixUpdateProfile, ixRegisterReferral, ixMintBonusNFT, ixAwardReferralPoints, ProfileAccountDiscriminator, evReferralQualified} {
		require.False(t, seen[d])
		seen[d] = true
	}
}

func TestReferralQualifiedEvents(t *testing.T) {
	ev := ReferralQualified{Referrer: address.PublicKey{1}, Referee: address.PublicKey{2}}
	logs := []string{
		"Program " + testProgram.String() + " invoke [1]",
		"Program data: !!!not base64",
		"Program data: " + base64.StdEncoding.EncodeToString([]byte("short")),
		EncodeReferralQualified(ev),
		"Program log: done",
	}
	require.Equal(t, []ReferralQualified{ev}, ParseReferralQualified(logs))
	require.Empty(t, ParseReferralQualified(nil))
}

func TestDescribeTransactionError(t *testing.T) {
	require.Equal(t, "Cannot refer yourself", DescribeTransactionError(json.RawMessage(`{"InstructionError":[0,{"Custom":6008}]}`)))
	require.Equal(t, "custom program error: 0x2710", DescribeTransactionError(json.RawMessage(`{"InstructionError":[1,{"Custom":10000}]}`)))
	require.Equal(t, "InvalidAccountData", DescribeTransactionError(json.RawMessage(`{"InstructionError":[0,"InvalidAccountData"]}`)))
	require.Equal(t, "AccountNotFound", DescribeTransactionError(json.RawMessage(`"AccountNotFound"`)))
	require.True(t, IsInsufficientFunds("Transfer: insufficient lamports 5, need 10"))
	require.False(t, IsInsufficientFunds("blockhash not found"))
}

func TestLogStream_DeliversNotifications(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req rpcCall
		if err := conn.ReadJSON(&req); err != nil || req.Method != "logsSubscribe" {
			return
		}
		conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": 1, "result": 42})
		conn.WriteJSON(map[string]any{
			"jsonrpc": "2.0",
			"method":  "logsNotification",
			"params": map[string]any{
				"subscription": 42,
				"result": wrap(map[string]any{
					"signature": "sig",
					"err":       nil,
					"logs":      []string{EncodeReferralQualified(ReferralQualified{Referrer: address.PublicKey{3}, Referee: address.PublicKey{4}})},
				}),
			},
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan LogNotification, 1)
	stream := NewLogStream("ws"+strings.TrimPrefix(srv.URL, "http"), testProgram)
	finished := make(chan struct{})
	go func() {
		stream.Run(ctx, func(n LogNotification) { got <- n })
		close(finished)
	}()

	select {
	case n := <-got:
		require.Equal(t, "sig", n.Signature)
		require.False(t, n.Failed())
		require.Len(t, ParseReferralQualified(n.Logs), 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}

	cancel()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}
}
