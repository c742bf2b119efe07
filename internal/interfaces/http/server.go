package httpinterface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/vaultline/walletd/internal/core/application"
	"github.com/vaultline/walletd/internal/interfaces"
)

const (
	initialMessageType = "initial"
	stateMessageType   = "state"

	eventsBufferSize = 16
	shutdownTimeout  = 5 * time.Second
	writeTimeout     = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is what the state stream sends to its clients.
type Message struct {
	Type string    `json:"type"`
	Data StateView `json:"data"`
}

var _ interfaces.Service = (*Server)(nil)

// Server exposes the wallets state over http. Besides the prometheus metrics
// it serves the current state at /api/status and streams every change of it
// to the websocket clients connected at /ws.
type Server struct {
	walletSvc application.WalletService
	server    *http.Server

	lock    sync.Mutex
	clients map[*websocket.Conn]struct{}

	events      chan application.WalletsState
	quit        chan struct{}
	unsubscribe func()
	wg          sync.WaitGroup
}

func NewServer(
	walletSvc application.WalletService,
	gatherer prometheus.Gatherer,
	port int,
) *Server {
	s := &Server{
		walletSvc: walletSvc,
		clients:   make(map[*websocket.Conn]struct{}),
		events:    make(chan application.WalletsState, eventsBufferSize),
		quit:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start subscribes to the wallet service and serves in background.
func (s *Server) Start() error {
	s.listen()

	go func() {
		if err := s.server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
		}
	}()
	log.Infof("http server listening on %s", s.server.Addr)
	return nil
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	//nolint
	s.server.Shutdown(ctx)

	s.stopListening()

	s.lock.Lock()
	defer s.lock.Unlock()
	for conn := range s.clients {
		//nolint
		conn.Close()
		delete(s.clients, conn)
	}
	log.Debug("http server stopped")
}

// listen forwards the wallet service notifications to the broadcaster. The
// listener never blocks the notifier, a snapshot is dropped if the queue is
// full since a newer one is on its way.
func (s *Server) listen() {
	s.unsubscribe = s.walletSvc.Subscribe(func(state application.WalletsState) {
		select {
		case s.events <- state:
		default:
			log.Debug("state stream queue is full, dropping snapshot")
		}
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case state := <-s.events:
				s.broadcast(Message{Type: stateMessageType, Data: NewStateView(state)})
			case <-s.quit:
				return
			}
		}
	}()
}

func (s *Server) stopListening() {
	if s.unsubscribe == nil {
		return
	}
	s.unsubscribe()
	s.unsubscribe = nil
	close(s.quit)
	s.wg.Wait()
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(
		NewStateView(s.walletSvc.State()),
	); err != nil {
		log.WithError(err).Debug("failed to write status response")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("failed to upgrade connection")
		return
	}
	defer func() { _ = conn.Close() }()

	defer func() {
		s.lock.Lock()
		delete(s.clients, conn)
		s.lock.Unlock()
	}()

	// The client is registered and sent the initial state under the same lock
	// so that no broadcast can overtake or miss it.
	s.lock.Lock()
	s.clients[conn] = struct{}{}
	initial := Message{
		Type: initialMessageType,
		Data: NewStateView(s.walletSvc.State()),
	}
	//nolint
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = conn.WriteJSON(initial)
	s.lock.Unlock()
	if err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) broadcast(msg Message) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for conn := range s.clients {
		//nolint
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			_ = conn.Close()
			delete(s.clients, conn)
		}
	}
}
