package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
	"github.com/ralt/pkgrelay/internal/platform"
	"github.com/ralt/pkgrelay/internal/upstream"
)

func TestSelectAPTRejectsUnknownDistro(t *testing.T) {
	r := New(nil, nil, &platform.Detector{})
	if _, err := r.SelectAPT(context.Background(), nil, "arch", "any-agent"); err == nil {
		t.Fatalf("expected an error for an unrecognized distro tag")
	}
}

func TestSelectRPMRejectsUnrecognizedAgent(t *testing.T) {
	r := New(nil, nil, &platform.Detector{})
	if _, err := r.SelectRPM(context.Background(), nil, "not a real user agent"); err == nil {
		t.Fatalf("expected an error for an agent that matches no rpm platform")
	}
}

func TestDownloadPackagesSkipsAlreadyCachedMetadata(t *testing.T) {
	r := New(nil, nil, nil)

	p := pkgobject.New("widget-1.0.0-amd64.deb", "", "v1.0.0", time.Now(), models.TypeDeb, nil, models.ArchAmd64, "widget")
	p.SetMetadata(`{"name":"widget"}`)

	result, err := r.DownloadPackages(context.Background(), []pkgobject.Package{p})
	if err != nil {
		t.Fatalf("DownloadPackages failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected the cached package to pass through, got %d results", len(result))
	}
}

func TestDownloadPackagesFetchesUncachedPackages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw archive bytes"))
	}))
	defer srv.Close()

	up := upstream.New("", srv.Client())
	r := New(up, nil, nil)

	p := pkgobject.New("widget-1.0.0-amd64.deb", srv.URL+"/widget-1.0.0-amd64.deb", "v1.0.0", time.Now(), models.TypeDeb, nil, models.ArchAmd64, "widget")

	result, err := r.DownloadPackages(context.Background(), []pkgobject.Package{p})
	if err != nil {
		t.Fatalf("DownloadPackages failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 downloaded package, got %d", len(result))
	}
	if result[0].IsMetadataAvailable() {
		t.Fatalf("expected raw package data, not parsed metadata, after a plain download")
	}
}

func TestDownloadPackagesReturnsEmptyForEmptyInput(t *testing.T) {
	r := New(nil, nil, nil)
	result, err := r.DownloadPackages(context.Background(), nil)
	if err != nil {
		t.Fatalf("DownloadPackages failed: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("expected no results, got %d", len(result))
	}
}
