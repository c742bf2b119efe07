package httpinterface

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/vaultline/walletd/internal/core/application"
	"github.com/vaultline/walletd/internal/infrastructure/keyderiver/hdwallet"
	inmemorykeystore "github.com/vaultline/walletd/internal/infrastructure/keystore/inmemory"
	dbinmemory "github.com/vaultline/walletd/internal/infrastructure/storage/db/inmemory"
)

const watchedAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func newTestServer(t *testing.T) (*Server, application.WalletService, *httptest.Server) {
	keystore := inmemorykeystore.NewKeystore()
	walletSvc := application.NewWalletService(
		dbinmemory.NewWalletRepositoryImpl(),
		keystore,
		hdwallet.NewKeyDeriver(keystore, nil),
		nil,
	)

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "walletd_test_total",
		Help: "test counter",
	})
	registry.MustRegister(counter)
	counter.Inc()

	s := NewServer(walletSvc, registry, 0)
	s.listen()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.stopListening()
	})
	return s, walletSvc, ts
}

func TestStatus(t *testing.T) {
	_, walletSvc, ts := newTestServer(t)

	_, err := walletSvc.ImportWallet(context.Background(), application.ImportWalletOpts{
		Input: watchedAddress,
		Label: "Watched",
	})
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view StateView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Equal(t, watchedAddress, view.CurrentAddress)
	require.Len(t, view.Wallets, 1)
	require.Equal(t, view.Selected, view.Wallets[0].ID)
	require.Len(t, view.Wallets[0].Accounts, 1)
	require.Equal(t, "Watched", view.Wallets[0].Accounts[0].Label)
}

func TestMetrics(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "walletd_test_total 1")
}

func TestStateStream(t *testing.T) {
	_, walletSvc, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	//nolint
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, initialMessageType, msg.Type)
	require.Empty(t, msg.Data.Wallets)

	_, err = walletSvc.ImportWallet(context.Background(), application.ImportWalletOpts{
		Input: watchedAddress,
	})
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, stateMessageType, msg.Type)
	require.Equal(t, watchedAddress, msg.Data.CurrentAddress)
	require.Len(t, msg.Data.Wallets, 1)
	require.Equal(t, "readOnly", msg.Data.Wallets[0].Type)
}
