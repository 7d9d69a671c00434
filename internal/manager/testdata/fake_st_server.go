package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// A stand-in for the managed Node server: answers GET /version and exits on
// SIGTERM unless told to ignore it.
func main() {
	var port int
	var ignoreTerm bool
	var exitCode int
	flag.IntVar(&port, "port", 8000, "listen port")
	flag.BoolVar(&ignoreTerm, "ignore-term", false, "ignore SIGTERM")
	flag.IntVar(&exitCode, "exit", -1, "exit immediately with this code")
	flag.Parse()

	if exitCode >= 0 {
		fmt.Fprintln(os.Stderr, "fatal: refusing to start")
		os.Exit(exitCode)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"agent":"SillyTavern:fake","pkgVersion":"0.0.0-fake"}`))
	})
	srv := &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	fmt.Printf("listening on port %d (NODE_ENV=%s)\n", port, os.Getenv("NODE_ENV"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	for sig := range sigCh {
		if ignoreTerm && sig == syscall.SIGTERM {
			fmt.Println("ignoring SIGTERM")
			continue
		}
		break
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
