package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// CallbackPath is the route Google redirects to after user consent.
const CallbackPath = "/oauth2callback"

// FindAvailablePort probes for a free TCP port on host, starting at
// startPort and scanning up to 100 consecutive ports.
func FindAvailablePort(host string, startPort int) (int, error) {
	for port := startPort; port < startPort+100; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
		if err != nil {
			continue
		}
		_ = listener.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no available ports found in range %d-%d", startPort, startPort+99)
}

// CallbackServer handles the local HTTP server for OAuth callbacks.
// It listens for the authorization code response from Google and captures
// the parameters needed to complete the authentication flow. Exactly one
// result is delivered per server lifetime.
type CallbackServer struct {
	server     *http.Server
	host       string
	port       int
	resultChan chan *CallbackResult
	errorChan  chan error
	mu         sync.Mutex
	running    bool
}

// NewCallbackServer creates a new OAuth callback server bound to host:port.
func NewCallbackServer(host string, port int) *CallbackServer {
	return &CallbackServer{
		host:       host,
		port:       port,
		resultChan: make(chan *CallbackResult, 1),
		errorChan:  make(chan error, 1),
	}
}

// Port returns the port the server listens on.
func (s *CallbackServer) Port() int {
	return s.port
}

// RedirectURI returns the redirect URI registered with the authorization request.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://%s:%d%s", s.host, s.port, CallbackPath)
}

// Start begins listening for the OAuth callback. It fails with a distinct
// message when the port is already taken so callers can surface ErrPortInUse.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	if !s.isPortAvailable() {
		return fmt.Errorf("port %d is already in use", s.port)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)
	mux.HandleFunc("/success", s.handleSuccess)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.running = true

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errorChan <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	// Give server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Stop gracefully stops the callback server.
func (s *CallbackServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	log.Debug("stopping OAuth callback server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.running = false
	s.server = nil

	return err
}

// WaitForCallback blocks until a callback result arrives, the server fails,
// or the timeout elapses.
func (s *CallbackServer) WaitForCallback(timeout time.Duration) (*CallbackResult, error) {
	select {
	case result := <-s.resultChan:
		return result, nil
	case err := <-s.errorChan:
		return nil, err
	case <-time.After(timeout):
		return nil, NewAuthenticationError(ErrCallbackTimeout, fmt.Errorf("no callback within %s", timeout))
	}
}

// handleCallback handles the OAuth redirect from Google. It extracts the
// authorization code and state, hands them to the waiting flow, and renders
// a result page. State verification happens in the flow manager, not here.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	log.Debug("received OAuth callback")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	errorParam := query.Get("error")

	if errorParam != "" {
		log.Errorf("OAuth error received: %s", errorParam)
		s.sendResult(&CallbackResult{
			Error:            errorParam,
			ErrorDescription: query.Get("error_description"),
		})
		s.renderError(w, errorParam)
		return
	}

	if code == "" {
		log.Error("no authorization code received")
		s.sendResult(&CallbackResult{Error: "no_code"})
		s.renderError(w, "no authorization code received")
		return
	}

	if state == "" {
		log.Error("no state parameter received")
		s.sendResult(&CallbackResult{Error: "no_state"})
		s.renderError(w, "no state parameter received")
		return
	}

	s.sendResult(&CallbackResult{Code: code, State: state})

	http.Redirect(w, r, "/success", http.StatusFound)
}

// handleSuccess serves the page shown after a successful authorization.
func (s *CallbackServer) handleSuccess(w http.ResponseWriter, _ *http.Request) {
	log.Debug("serving success page")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(LoginSuccessHTML)); err != nil {
		log.Errorf("failed to write success page: %v", err)
	}
}

// renderError serves the styled error page with the given reason.
func (s *CallbackServer) renderError(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)

	page := strings.Replace(LoginErrorHTML, "{{ERROR}}", reason, 1)
	if _, err := w.Write([]byte(page)); err != nil {
		log.Errorf("failed to write error page: %v", err)
	}
}

// sendResult delivers the callback result without blocking the handler.
// Later duplicate callbacks are dropped; only the first result counts.
func (s *CallbackServer) sendResult(result *CallbackResult) {
	select {
	case s.resultChan <- result:
		log.Debug("OAuth result sent to channel")
	default:
		log.Warn("OAuth result channel is full, result dropped")
	}
}

// isPortAvailable checks whether the configured port can be bound.
func (s *CallbackServer) isPortAvailable() bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return false
	}
	defer func() {
		_ = listener.Close()
	}()
	return true
}

// IsRunning returns whether the server is currently running.
func (s *CallbackServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
