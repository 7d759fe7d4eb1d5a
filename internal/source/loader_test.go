package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/facedex/internal/domain"
)

func TestSource_Kind(t *testing.T) {
	tests := []struct {
		src  Source
		want Kind
	}{
		{FromFile([]byte{1}), KindFile},
		{FromBase64("AA=="), KindBase64},
		{FromURL("http://x/y.jpg"), KindURL},
	}
	for _, tc := range tests {
		if tc.src.Kind() != tc.want {
			t.Errorf("Kind() = %q, want %q", tc.src.Kind(), tc.want)
		}
	}
	if FromURL("http://x").URL() != "http://x" || FromBase64("x").URL() != "" {
		t.Error("URL() must only expose url sources")
	}
}

func TestLoad_File(t *testing.T) {
	want := []byte{0xff, 0xd8, 0xff}
	got, err := NewLoader(nil, 0, 0).Load(context.Background(), FromFile(want))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecodeBase64(t *testing.T) {
	raw := []byte("face bytes!")
	std := base64.StdEncoding.EncodeToString(raw)
	unpadded := base64.RawStdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"plain", std, false},
		{"data uri", "data:image/jpeg;base64," + std, false},
		{"unpadded", unpadded, false},
		{"wrapped lines", std[:4] + "\n" + std[4:8] + "\r\n " + std[8:], false},
		{"garbage", "!!not base64!!", true},
		{"empty", "", true},
		{"empty data uri", "data:image/png;base64,", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewLoader(nil, 0, 0).Load(context.Background(), FromBase64(tc.payload))
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidBase64) {
					t.Fatalf("expected ErrInvalidBase64, got %v", err)
				}
				if domain.IsExtractionFailure(err) {
					t.Error("base64 failures are client errors, not pipeline failures")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, raw) {
				t.Errorf("got %q, want %q", got, raw)
			}
		})
	}
}

func TestLoad_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			if !strings.HasPrefix(r.UserAgent(), "facedex/") {
				t.Errorf("unexpected user agent %q", r.UserAgent())
			}
			_, _ = w.Write([]byte("jpeg-bytes"))
		case "/big.jpg":
			_, _ = w.Write(bytes.Repeat([]byte{1}, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	loader := NewLoader(srv.Client(), time.Second, 32)

	got, err := loader.Load(context.Background(), FromURL(srv.URL+"/ok.jpg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "jpeg-bytes" {
		t.Errorf("got %q", got)
	}

	for _, path := range []string{"/missing.jpg", "/big.jpg"} {
		_, err := loader.Load(context.Background(), FromURL(srv.URL+path))
		if !errors.Is(err, domain.ErrDownloadFailed) {
			t.Errorf("%s: expected ErrDownloadFailed, got %v", path, err)
		}
	}
}

func TestLoad_URLTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	loader := NewLoader(srv.Client(), 50*time.Millisecond, 0)

	start := time.Now()
	_, err := loader.Load(context.Background(), FromURL(srv.URL+"/slow.jpg"))
	if !errors.Is(err, domain.ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not honoured, took %v", elapsed)
	}
}

func TestLoad_URLRejectsSchemes(t *testing.T) {
	for _, u := range []string{"file:///etc/passwd", "ftp://host/x.jpg", "not a url", "http://"} {
		_, err := NewLoader(nil, 0, 0).Load(context.Background(), FromURL(u))
		if !errors.Is(err, domain.ErrDownloadFailed) {
			t.Errorf("%q: expected ErrDownloadFailed, got %v", u, err)
		}
	}
}

func TestLoad_EmptySource(t *testing.T) {
	_, err := NewLoader(nil, 0, 0).Load(context.Background(), Source{})
	if !errors.Is(err, domain.ErrNoImageInput) {
		t.Errorf("expected ErrNoImageInput, got %v", err)
	}
}
