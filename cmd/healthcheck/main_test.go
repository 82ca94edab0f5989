package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthURL(t *testing.T) {
	tests := []struct{ addr, want string }{
		{"", "http://localhost:8080/healthz"},
		{":9090", "http://localhost:9090/healthz"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080/healthz"},
	}
	for _, tt := range tests {
		if got := healthURL(tt.addr); got != tt.want {
			t.Errorf("healthURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestProbe(t *testing.T) {
	code := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	defer srv.Close()

	if err := probe(context.Background(), srv.Client(), srv.URL+"/healthz"); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}
	code = http.StatusServiceUnavailable
	if err := probe(context.Background(), srv.Client(), srv.URL+"/healthz"); err == nil {
		t.Fatal("expected error on 503")
	}
}
