package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

// startServerAt brings up a callback server on the first free port at or
// above base. Distinct bases keep parallel tests off each other's ports.
func startServerAt(t *testing.T, base int) *CallbackServer {
	t.Helper()

	port, err := FindAvailablePort("127.0.0.1", base)
	if err != nil {
		t.Fatalf("FindAvailablePort() error = %v", err)
	}

	s := NewCallbackServer("127.0.0.1", port)
	if err = s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func TestCallbackServerDeliversCode(t *testing.T) {
	t.Parallel()

	s := startServerAt(t, 18400)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s?code=abc&state=xyz", s.Port(), CallbackPath))
	if err != nil {
		t.Fatalf("callback request error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	// The redirect to the success page is followed by the client.
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(string(body), "Authentication Successful") {
		t.Error("success page body missing confirmation heading")
	}

	result, err := s.WaitForCallback(2 * time.Second)
	if err != nil {
		t.Fatalf("WaitForCallback() error = %v", err)
	}
	if result.Code != "abc" || result.State != "xyz" {
		t.Errorf("result = %+v, want code abc and state xyz", result)
	}
}

func TestCallbackServerProviderError(t *testing.T) {
	t.Parallel()

	s := startServerAt(t, 18500)

	resp, err := http.Get(fmt.Sprintf(
		"http://127.0.0.1:%d%s?error=access_denied&error_description=denied", s.Port(), CallbackPath))
	if err != nil {
		t.Fatalf("callback request error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if !strings.Contains(string(body), "access_denied") {
		t.Error("error page body missing the provider error")
	}

	result, err := s.WaitForCallback(2 * time.Second)
	if err != nil {
		t.Fatalf("WaitForCallback() error = %v", err)
	}
	if result.Error != "access_denied" || result.ErrorDescription != "denied" {
		t.Errorf("result = %+v, want access_denied with description", result)
	}
}

func TestCallbackServerFirstResultWins(t *testing.T) {
	t.Parallel()

	s := startServerAt(t, 18600)

	for _, code := range []string{"first", "second"} {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s?code=%s&state=s", s.Port(), CallbackPath, code))
		if err != nil {
			t.Fatalf("callback request error = %v", err)
		}
		_ = resp.Body.Close()
	}

	result, err := s.WaitForCallback(2 * time.Second)
	if err != nil {
		t.Fatalf("WaitForCallback() error = %v", err)
	}
	if result.Code != "first" {
		t.Errorf("result code = %q, want the first callback to win", result.Code)
	}
}

func TestCallbackServerWaitTimeout(t *testing.T) {
	t.Parallel()

	s := startServerAt(t, 18700)

	_, err := s.WaitForCallback(50 * time.Millisecond)
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) || authErr.Type != ErrCallbackTimeout.Type {
		t.Fatalf("WaitForCallback() error = %v, want callback timeout", err)
	}
}

func TestCallbackServerPortInUse(t *testing.T) {
	t.Parallel()

	port, err := FindAvailablePort("127.0.0.1", 18800)
	if err != nil {
		t.Fatalf("FindAvailablePort() error = %v", err)
	}
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() {
		_ = listener.Close()
	}()

	s := NewCallbackServer("127.0.0.1", port)
	err = s.Start()
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
		t.Fatal("Start() succeeded on an occupied port")
	}
	if !strings.Contains(err.Error(), "already in use") {
		t.Errorf("Start() error = %v, want port-in-use message", err)
	}
}

func TestFindAvailablePortSkipsOccupied(t *testing.T) {
	t.Parallel()

	const base = 18900
	first, err := FindAvailablePort("127.0.0.1", base)
	if err != nil {
		t.Fatalf("FindAvailablePort() error = %v", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", first))
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() {
		_ = listener.Close()
	}()

	second, err := FindAvailablePort("127.0.0.1", base)
	if err != nil {
		t.Fatalf("FindAvailablePort() error = %v", err)
	}
	if second == first {
		t.Errorf("FindAvailablePort() = %d, want a port other than the occupied %d", second, first)
	}
}

func TestCallbackServerStopIdempotent(t *testing.T) {
	t.Parallel()

	s := startServerAt(t, 19000)
	if !s.IsRunning() {
		t.Fatal("IsRunning() = false after start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after stop")
	}
	if err := s.Stop(ctx); err != nil {
		t.Errorf("second Stop() error = %v, want nil", err)
	}
}
