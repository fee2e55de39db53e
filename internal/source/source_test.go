package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(map[string]string{
		"kaspad-mainnet": "kaspad",
		"bridge":         "viaduct",
	})

	tag, err := r.ServiceType("bridge")
	if err != nil {
		t.Fatalf("ServiceType(bridge) error: %v", err)
	}
	if tag != "viaduct" {
		t.Fatalf("ServiceType(bridge) = %q, want viaduct", tag)
	}

	if _, err := r.ServiceType("nope"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("ServiceType(nope) error = %v, want ErrUnknownSource", err)
	}
	if r.Known("nope") {
		t.Fatal("Known(nope) = true, want false")
	}

	ids := r.IDs()
	sort.Strings(ids)
	want := []string{"bridge", "kaspad-mainnet"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
}

func TestFileSourceTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.log")

	var sb strings.Builder
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	fs := NewFileSource(map[string]string{"svc": path})
	lines, err := fs.FetchRecent(context.Background(), "svc", 5)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	want := []string{"line 16", "line 17", "line 18", "line 19", "line 20"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("tail = %v, want %v", lines, want)
	}
}

func TestFileSourceShortFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.log")
	if err := os.WriteFile(path, []byte("only\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	fs := NewFileSource(map[string]string{"svc": path})
	lines, err := fs.FetchRecent(context.Background(), "svc", 100)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(lines) != 1 || lines[0] != "only" {
		t.Fatalf("tail = %v, want [only]", lines)
	}
}

func TestFileSourceMissingFileIsEmpty(t *testing.T) {
	fs := NewFileSource(map[string]string{"svc": filepath.Join(t.TempDir(), "absent.log")})
	lines, err := fs.FetchRecent(context.Background(), "svc", 10)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("tail = %v, want empty", lines)
	}
}

func TestFileSourceUnknownID(t *testing.T) {
	fs := NewFileSource(nil)
	if _, err := fs.FetchRecent(context.Background(), "ghost", 10); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("error = %v, want ErrUnknownSource", err)
	}
}

func TestAgentClientFetchRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/logs" {
			t.Errorf("path = %q, want /api/logs", r.URL.Path)
		}
		if got := r.URL.Query().Get("source"); got != "bridge" {
			t.Errorf("source = %q, want bridge", got)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("limit = %q, want 2", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"lines":["first","second"]}`)
	}))
	defer srv.Close()

	client, err := NewAgentClient(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("NewAgentClient: %v", err)
	}
	lines, err := client.FetchRecent(context.Background(), "bridge", 2)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"first", "second"}) {
		t.Fatalf("lines = %v, want [first second]", lines)
	}
}

func TestAgentClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := NewAgentClient(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("NewAgentClient: %v", err)
	}
	if _, err := client.FetchRecent(context.Background(), "ghost", 10); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("error = %v, want ErrUnknownSource", err)
	}
}

func TestAgentClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewAgentClient(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("NewAgentClient: %v", err)
	}
	if _, err := client.FetchRecent(context.Background(), "bridge", 10); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("error = %v, want ErrSourceUnavailable", err)
	}
}

func TestParseBaseURLDefaultsScheme(t *testing.T) {
	u, err := parseBaseURL("127.0.0.1:9000")
	if err != nil {
		t.Fatalf("parseBaseURL: %v", err)
	}
	if u.String() != "http://127.0.0.1:9000" {
		t.Fatalf("url = %q, want http://127.0.0.1:9000", u.String())
	}

	u, err = parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL empty: %v", err)
	}
	if u.String() != "http://"+defaultAgentBind {
		t.Fatalf("url = %q, want default bind", u.String())
	}
}
