//go:build !windows

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/elkbridge/pkg/engine"
	"github.com/matzehuels/elkbridge/pkg/engine/enginetest"
	"github.com/matzehuels/elkbridge/pkg/layout"
	"github.com/matzehuels/elkbridge/pkg/store"
)

func TestClientHangupKeepsEngine(t *testing.T) {
	sup := engine.New(enginetest.Resolver(t, "slow"))
	t.Cleanup(sup.Shutdown)
	st := store.NewMemoryStore()
	srv := httptest.NewServer(New(layout.NewClient(sup), Options{
		Logger: log.New(&strings.Builder{}),
		Store:  st,
	}).Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/v1/layout", strings.NewReader(graphDoc))
	if err != nil {
		t.Fatal(err)
	}
	if resp, err := http.DefaultClient.Do(req); err == nil {
		resp.Body.Close()
		t.Fatal("request should have been abandoned by the client")
	}

	// The handler finishes the exchange and archives the result.
	deadline := time.Now().Add(5 * time.Second)
	for st.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if st.Len() != 1 {
		t.Fatal("abandoned request was not completed")
	}
	if sup.State() != engine.StateReady || sup.Launches() != 1 {
		t.Errorf("state %v, launches %d; want ready, 1", sup.State(), sup.Launches())
	}

	resp, err := http.Post(srv.URL+"/v1/layout", "application/json", strings.NewReader(graphDoc))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || sup.Launches() != 1 {
		t.Errorf("follow-up: status %d, launches %d", resp.StatusCode, sup.Launches())
	}
}
