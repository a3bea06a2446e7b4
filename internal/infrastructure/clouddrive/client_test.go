package clouddrive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"steelloop/internal/config"
	"steelloop/internal/domain"
	"steelloop/internal/orchestrator"
)

func TestListFolderFollowsPagesAndSkipsFolders(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			t.Errorf("authorization header %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "'folder-9' in parents and trashed = false" {
			t.Errorf("query %q", got)
		}
		switch r.URL.Query().Get("pageToken") {
		case "":
			_, _ = io.WriteString(w, `{"nextPageToken":"p2","files":[
				{"id":"a","name":"notes.txt","mimeType":"text/plain"},
				{"id":"sub","name":"Archive","mimeType":"application/vnd.google-apps.folder"}]}`)
		case "p2":
			_, _ = io.WriteString(w, `{"files":[{"id":"b","name":"deck.pptx","mimeType":"application/vnd.openxmlformats-officedocument.presentationml.presentation"}]}`)
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))
	defer srv.Close()

	client := NewClient(config.CloudDriveConfig{APIBase: srv.URL})
	files, err := client.ListFolder(context.Background(), domain.CloudConnection{AccessToken: "access-1"}, "folder-9")
	if err != nil {
		t.Fatalf("list folder: %v", err)
	}
	if len(files) != 2 || files[0].ID != "a" || files[1].Name != "deck.pptx" {
		t.Fatalf("unexpected files %+v", files)
	}
}

func TestDownloadStreamsBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/file-1" || r.URL.Query().Get("alt") != "media" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = io.WriteString(w, "body text")
	}))
	defer srv.Close()

	body, err := NewClient(config.CloudDriveConfig{APIBase: srv.URL}).Download(context.Background(), domain.CloudConnection{AccessToken: "t"}, "file-1")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer body.Close()
	raw, _ := io.ReadAll(body)
	if string(raw) != "body text" {
		t.Fatalf("unexpected body %q", raw)
	}
}

func TestRefreshTokenKeepsRefreshTokenUnlessRotated(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "refresh-1" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		if r.PostForm.Get("client_id") != "cid" {
			t.Errorf("client id %q", r.PostForm.Get("client_id"))
		}
		_, _ = io.WriteString(w, `{"access_token":"access-2","expires_in":3600}`)
	}))
	defer srv.Close()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	client := NewClient(config.CloudDriveConfig{TokenURL: srv.URL, ClientID: "cid", ClientSecret: "secret"},
		WithClock(func() time.Time { return now }))

	conn := domain.CloudConnection{UserID: "u1", Provider: domain.ProviderGoogleDrive, AccessToken: "access-1", RefreshToken: "refresh-1"}
	refreshed, err := client.RefreshToken(context.Background(), conn)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken != "access-2" || refreshed.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected tokens %+v", refreshed)
	}
	if !refreshed.TokenExpiry.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", refreshed.TokenExpiry)
	}
	if refreshed.ExpiresWithin(now, 5*time.Minute) {
		t.Fatal("fresh token reported as expiring")
	}
	if !refreshed.ExpiresWithin(now.Add(56*time.Minute), 5*time.Minute) {
		t.Fatal("token inside buffer not reported as expiring")
	}
}

func TestStatusClassification(t *testing.T) {
	t.Parallel()
	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", int(status.Load()))
	}))
	defer srv.Close()
	client := NewClient(config.CloudDriveConfig{APIBase: srv.URL})

	_, err := client.ListFolder(context.Background(), domain.CloudConnection{}, "f")
	if !errors.Is(err, orchestrator.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}

	status.Store(http.StatusForbidden)
	_, err = client.Download(context.Background(), domain.CloudConnection{}, "f")
	if !orchestrator.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
