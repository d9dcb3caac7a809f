package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// shutdownTimeout bounds how long callbackServer.shutdown waits for
// the in-flight request (the one delivering the result) to finish.
const shutdownTimeout = 2 * time.Second

// callbackResult is what a captured redirect carries back.
type callbackResult struct {
	code  string
	state string
}

// callbackServer is a short-lived local HTTP listener that captures an
// OAuth redirect's code/state query parameters, the Go-idiomatic
// equivalent of a hyper-based one-shot callback listener: one
// http.Server, one result delivered over a channel, shut down as soon
// as it has served a single request or been cancelled.
type callbackServer struct {
	srv    *http.Server
	addr   string
	result chan callbackOutcome

	once sync.Once
}

// Addr returns the address the listener actually bound, which may
// differ from the addr passed to startCallbackServer when that used
// port 0.
func (cb *callbackServer) Addr() string { return cb.addr }

type callbackOutcome struct {
	result callbackResult
	err    error
}

// startCallbackServer binds addr and serves path, expecting the
// provider to redirect the browser there with ?code=...&state=....
// Returning an error here just means the local listener isn't
// available (port in use, no loopback); the caller falls back to
// asking the user to paste the code manually.
func startCallbackServer(addr, path, expectedState string) (*callbackServer, error) {
	cb := &callbackServer{result: make(chan callbackOutcome, 1)}

	mux := http.NewServeMux()
	mux.HandleFunc(path, cb.handle(expectedState))
	cb.srv = &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	cb.addr = ln.Addr().String()

	go func() {
		_ = cb.srv.Serve(ln)
	}()

	return cb, nil
}

func (cb *callbackServer) handle(expectedState string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		if msg := q.Get("error"); msg != "" {
			cb.deliver(callbackOutcome{err: fmt.Errorf("authorization denied: %s", msg)})
			writeCallbackPage(w, false, msg)
			return
		}

		code, state := q.Get("code"), q.Get("state")
		if code == "" || state == "" {
			http.Error(w, "missing code or state", http.StatusBadRequest)
			return
		}
		if state != expectedState {
			cb.deliver(callbackOutcome{err: errors.New("state mismatch")})
			writeCallbackPage(w, false, "state mismatch")
			return
		}

		cb.deliver(callbackOutcome{result: callbackResult{code: code, state: state}})
		writeCallbackPage(w, true, "")
	}
}

// deliver sends the outcome once; the server may see retried requests
// from the browser (favicon fetches, etc.) after the first real hit.
func (cb *callbackServer) deliver(o callbackOutcome) {
	cb.once.Do(func() {
		cb.result <- o
	})
}

// wait blocks until a redirect is captured, ctx is cancelled, or the
// server is shut down via cancel, then tears the listener down either
// way.
func (cb *callbackServer) wait(ctx context.Context) (callbackResult, error) {
	defer cb.shutdown()
	select {
	case o := <-cb.result:
		return o.result, o.err
	case <-ctx.Done():
		return callbackResult{}, ctx.Err()
	}
}

// cancel stops the listener without a captured result, used when the
// caller submits a pasted code before the redirect arrives.
func (cb *callbackServer) cancel() {
	cb.deliver(callbackOutcome{err: errors.New("cancelled")})
}

func (cb *callbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = cb.srv.Shutdown(ctx)
}

func writeCallbackPage(w http.ResponseWriter, ok bool, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if ok {
		fmt.Fprint(w, `<html><body><h1>Authorization successful</h1><p>You can close this window and return to the terminal.</p></body></html>`)
		return
	}
	fmt.Fprintf(w, `<html><body><h1>Authorization failed</h1><p>%s</p></body></html>`, errMsg)
}
