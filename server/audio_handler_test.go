package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"GiftFM/core/overlay"
	"GiftFM/core/pipeline"

	"github.com/gorilla/mux"
)

func newAudioTestServer(t *testing.T) (*overlay.Service, *httptest.Server) {
	t.Helper()

	hub := overlay.NewHub()
	tracker := pipeline.NewTracker(0, nil)
	svc := overlay.NewService(hub, tracker, "http://127.0.0.1:8655")
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := mux.NewRouter()
	router.Handle("/audio/{token}", NewAudioHandler(svc)).Methods("GET")

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return svc, ts
}

func registerClip(t *testing.T, svc *overlay.Service, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	svc.PlayAudio(pipeline.PlayRequest{Path: path, Volume: 1, Duration: 1})
	return svc.TokenFor(path)
}

func TestAudioUnknownToken(t *testing.T) {
	_, ts := newAudioTestServer(t)

	resp, err := http.Get(ts.URL + "/audio/deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown token, got %d", resp.StatusCode)
	}
}

func TestAudioDisallowedExtension(t *testing.T) {
	svc, ts := newAudioTestServer(t)
	token := registerClip(t, svc, "notes.txt", []byte("not audio"))

	resp, err := http.Get(ts.URL + "/audio/" + token)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-audio extension, got %d", resp.StatusCode)
	}
}

func TestAudioServesFile(t *testing.T) {
	svc, ts := newAudioTestServer(t)
	data := make([]byte, 4096)
	token := registerClip(t, svc, "clip.mp3", data)

	resp, err := http.Get(ts.URL + "/audio/" + token)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %q", ct)
	}
	if ar := resp.Header.Get("Accept-Ranges"); ar != "bytes" {
		t.Errorf("expected Accept-Ranges: bytes, got %q", ar)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected Cache-Control: no-store, got %q", cc)
	}
}

func TestAudioRangeRequest(t *testing.T) {
	svc, ts := newAudioTestServer(t)
	token := registerClip(t, svc, "clip.mp3", make([]byte, 4096))

	req, _ := http.NewRequest("GET", ts.URL+"/audio/"+token, nil)
	req.Header.Set("Range", "bytes=100-199")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("expected 206 for range request, got %d", resp.StatusCode)
	}
	if cl := resp.Header.Get("Content-Length"); cl != "100" {
		t.Errorf("expected 100-byte slice, got Content-Length %q", cl)
	}
}

func TestAudioDeletedFile(t *testing.T) {
	svc, ts := newAudioTestServer(t)

	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, make([]byte, 128), 0644); err != nil {
		t.Fatal(err)
	}
	svc.PlayAudio(pipeline.PlayRequest{Path: path, Volume: 1, Duration: 1})
	token := svc.TokenFor(path)
	os.Remove(path)

	resp, err := http.Get(ts.URL + "/audio/" + token)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for deleted file, got %d", resp.StatusCode)
	}
}
