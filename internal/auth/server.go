package auth

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"time"
)

// callbackResult holds the OAuth2 callback parameters.
type callbackResult struct {
	Code  string
	State string
	Error string
}

// callbackServer receives exactly one OAuth2 redirect on the loopback interface.
type callbackServer struct {
	url      string
	results  chan callbackResult
	shutdown func()
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>`

// startCallbackServer starts a temporary HTTP server on a random loopback port.
// The server shuts down on context cancellation or when shutdown is called.
func startCallbackServer(ctx context.Context) (*callbackServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	cb := &callbackServer{
		url:     fmt.Sprintf("http://127.0.0.1:%d/callback", listener.Addr().(*net.TCPAddr).Port),
		results: make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result := callbackResult{Code: q.Get("code"), State: q.Get("state")}
		if result.Code == "" {
			result.Error = q.Get("error")
			if result.Error == "" {
				result.Error = "missing authorization code"
			}
		}

		// Only the first redirect counts
		select {
		case cb.results <- result:
		default:
		}

		w.Header().Set("Content-Type", "text/html")
		if result.Error != "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, pageTemplate, "Authentication Failed", "Authentication Failed",
				"Error: "+html.EscapeString(result.Error)+". You can close this window and try again.")
			return
		}
		fmt.Fprintf(w, pageTemplate, "Authentication Successful", "Authentication Successful!",
			"You can close this window and return to the terminal.")
	})

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		_ = server.Serve(listener)
	}()

	cb.shutdown = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}

	// Auto-shutdown on context cancellation
	go func() {
		<-ctx.Done()
		cb.shutdown()
	}()

	return cb, nil
}
