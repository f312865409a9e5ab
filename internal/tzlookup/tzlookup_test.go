package tzlookup

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirsanium/openpvz/internal/geo"
)

func resolverFor(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r := NewResolver("Europe/Moscow")
	r.baseURL = srv.URL
	return r
}

var somewhere = geo.Location{Latitude: 55.7558, Longitude: 37.6173}

func TestResolve(t *testing.T) {
	r := resolverFor(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"status_code":200,"tz_name":"Asia/Yekaterinburg"}`))
	})

	if got := r.Resolve(somewhere); got != "Asia/Yekaterinburg" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestResolveFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not found", `{"status_code":404}`},
		{"empty zone", `{"status_code":200,"tz_name":""}`},
		{"unknown zone", `{"status_code":200,"tz_name":"Nowhere/AtAll"}`},
		{"malformed json", `{{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resolverFor(t, func(w http.ResponseWriter, req *http.Request) {
				w.Write([]byte(tt.body))
			})
			if got := r.Resolve(somewhere); got != "Europe/Moscow" {
				t.Errorf("Resolve = %q, want default", got)
			}
		})
	}
}

func TestResolveServerUnreachable(t *testing.T) {
	r := NewResolver("Europe/Moscow")
	r.baseURL = "http://127.0.0.1:0"

	if got := r.Resolve(somewhere); got != "Europe/Moscow" {
		t.Errorf("Resolve = %q, want default", got)
	}
}
