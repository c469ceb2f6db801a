package storage

import "testing"

func TestGet_MemoizesPerConfig(t *testing.T) {
	resetCache()

	cfg := Config{Endpoint: "localhost:9000", Bucket: "static"}
	first, err := Get(cfg)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	second, err := Get(cfg)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if first != second {
		t.Fatalf("identical configs must yield the identical instance")
	}

	other, err := Get(Config{Endpoint: "localhost:9000", Bucket: "media"})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if other == first {
		t.Fatalf("different configs must yield distinct instances")
	}
}

func TestURL(t *testing.T) {
	resetCache()

	store, err := Get(Config{Endpoint: "assets.example.com:9000", Bucket: "static"})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got := store.URL("css/site.css"); got != "http://assets.example.com:9000/static/css/site.css" {
		t.Fatalf("unexpected URL: %q", got)
	}
	if got := store.URL("img/logo 2x.png"); got != "http://assets.example.com:9000/static/img/logo%202x.png" {
		t.Fatalf("unexpected URL: %q", got)
	}

	cdn, err := Get(Config{Endpoint: "assets.example.com", Bucket: "static", PublicBaseURL: "https://cdn.example.com/"})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got := cdn.URL("logo.png"); got != "https://cdn.example.com/logo.png" {
		t.Fatalf("unexpected CDN URL: %q", got)
	}
}
