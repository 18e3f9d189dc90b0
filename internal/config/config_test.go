package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RPC_URL", "")
	t.Setenv("WS_URL", "")
	t.Setenv("CONFIRM_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultRPCURL, cfg.RPCURL)
	require.Equal(t, "wss://api.devnet.solana.com", cfg.WSURL)
	require.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	require.Equal(t, 30*time.Second, cfg.TreasuryRefreshInterval)
	require.Equal(t, 60*time.Second, cfg.LeaderboardRefreshInterval)
	require.Equal(t, uint64(0), cfg.PrizeDustLamports)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RPC_URL", "http://127.0.0.1:8899")
	t.Setenv("WS_URL", "")
	t.Setenv("CONFIRM_TIMEOUT", "5s")
	t.Setenv("PRIZE_DUST_LAMPORTS", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:8899", cfg.WSURL)
	require.Equal(t, 5*time.Second, cfg.ConfirmTimeout)
	require.Equal(t, uint64(5000), cfg.PrizeDustLamports)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("CONFIRM_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("CONFIRM_TIMEOUT", "")
	t.Setenv("PRIZE_DUST_LAMPORTS", "-1")
	_, err = Load()
	require.Error(t, err)
}
