package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	c := New(baseURL)
	c.RetryDelay = time.Millisecond
	return c
}

func TestGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			t.Errorf("expected user agent %q, got %q", DefaultUserAgent, got)
		}
		if r.URL.Path != "/cg352.htm" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>АТ141</body></html>"))
	}))
	defer server.Close()

	body, err := testClient(server.URL).Get(context.Background(), "cg352.htm")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(body, "АТ141") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestGetAbsoluteURLBypassesBase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	c := testClient("http://base.invalid")
	if _, err := c.Get(context.Background(), server.URL+"/page.htm"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
}

func TestGetEmptyPath(t *testing.T) {
	_, err := testClient("http://base.invalid").Get(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyPath) {
		t.Errorf("expected ErrEmptyPath, got %v", err)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	body, err := testClient(server.URL).Get(context.Background(), "cg352.htm")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if body == "" {
		t.Error("expected non-empty body")
	}
}

func TestGetRetriesTooManyRequests(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	if _, err := testClient(server.URL).Get(context.Background(), "cg352.htm"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestGetNotFoundFailsImmediately(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Get(context.Background(), "cg352.htm")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt for 404, got %d", attempts)
	}
}

func TestGetRetriesExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testClient(server.URL)
	c.MaxRetries = 2
	_, err := c.Get(context.Background(), "cg352.htm")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestGetRejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Get(context.Background(), "cg352.htm")
	if !errors.Is(err, ErrUnsupportedContent) {
		t.Errorf("expected ErrUnsupportedContent, got %v", err)
	}
}

func TestGetRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("   \n "))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Get(context.Background(), "cg352.htm")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestGetDecodesWindows1251(t *testing.T) {
	// "АТ141" in windows-1251.
	encoded := []byte{0xC0, 0xD2, '1', '4', '1'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		w.Write(encoded)
	}))
	defer server.Close()

	body, err := testClient(server.URL).Get(context.Background(), "cg352.htm")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if body != "АТ141" {
		t.Errorf("expected decoded АТ141, got %q", body)
	}
}

func TestBuildURL(t *testing.T) {
	c := New("https://example.org/html/")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "relative path", path: "cg352.htm", want: "https://example.org/html/cg352.htm"},
		{name: "leading slash", path: "/cg352.htm", want: "https://example.org/html/cg352.htm"},
		{name: "absolute passes through", path: "https://other.org/x.htm", want: "https://other.org/x.htm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.buildURL(tt.path)
			if err != nil {
				t.Fatalf("buildURL failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
