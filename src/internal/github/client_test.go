package github

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
)

const testRepo = "EnderiumCraft/RBC-Network-Server"

// newRegistry serves a fake release repository. descriptor is the body of
// the version.json asset; an empty descriptor omits the asset.
func newRegistry(t *testing.T, descriptor string) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/repos/"+testRepo+"/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/vnd.github.v3+json" {
			t.Errorf("Accept = %q", got)
		}
		assets := fmt.Sprintf(`{"name":"RBCLauncher.exe","browser_download_url":"%s/dl/RBCLauncher.exe","size":11}`, srv.URL)
		if descriptor != "" {
			assets += fmt.Sprintf(`,{"name":"version.json","browser_download_url":"%s/dl/version.json","size":%d}`, srv.URL, len(descriptor))
		}
		fmt.Fprintf(w, `{"tag_name":"v1.0.1","name":"Release","assets":[%s]}`, assets)
	})
	mux.HandleFunc("/dl/version.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, descriptor)
	})
	mux.HandleFunc("/dl/RBCLauncher.exe", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "new-binary!")
	})
	mux.HandleFunc("/repos/"+testRepo+"/contents/Minecraft/game", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ref") != "v1.0.1" {
			t.Errorf("ref = %q", r.URL.Query().Get("ref"))
		}
		fmt.Fprintf(w, `[
			{"type":"file","path":"Minecraft/game/options.txt","download_url":"%[1]s/raw/options.txt"},
			{"type":"dir","path":"Minecraft/game/mods"},
			{"type":"symlink","path":"Minecraft/game/link"}
		]`, srv.URL)
	})
	mux.HandleFunc("/repos/"+testRepo+"/contents/Minecraft/game/mods", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"type":"file","path":"Minecraft/game/mods/fabric-api.jar","download_url":"%s/raw/fabric-api.jar"}]`, srv.URL)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(Options{
		APIURL:     srv.URL,
		Repository: testRepo,
		Token:      "secret",
	})
	return srv, client
}

func TestFetchLatestManifest(t *testing.T) {
	_, client := newRegistry(t, `{"launcher":"1.0.1","modpack":"1.0.0"}`)

	manifest, err := client.FetchLatestManifest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatestManifest: %v", err)
	}
	if manifest.Tag != "v1.0.1" {
		t.Errorf("Tag = %q", manifest.Tag)
	}
	if manifest.Versions.BinaryVersion != "1.0.1" || manifest.Versions.ContentVersion != "1.0.0" {
		t.Errorf("Versions = %+v", manifest.Versions)
	}
	if _, ok := manifest.Asset("RBCLauncher.exe"); !ok {
		t.Error("launcher asset missing from manifest")
	}
}

func TestFetchLatestManifestMissingDescriptor(t *testing.T) {
	_, client := newRegistry(t, "")

	_, err := client.FetchLatestManifest(context.Background())
	if !errs.Is(err, errs.KindProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestFetchLatestManifestMalformedDescriptor(t *testing.T) {
	for _, descriptor := range []string{`not json`, `{"launcher":"1.0.1"}`} {
		_, client := newRegistry(t, descriptor)
		_, err := client.FetchLatestManifest(context.Background())
		if !errs.Is(err, errs.KindProtocol) {
			t.Errorf("descriptor %q: expected protocol error, got %v", descriptor, err)
		}
	}
}

func TestFetchLatestManifestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(Options{APIURL: srv.URL, Repository: testRepo})
	_, err := client.FetchLatestManifest(context.Background())
	if !errs.Is(err, errs.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("diagnostic lost: %v", err)
	}
}

func TestFetchLatestManifestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(Options{APIURL: url, Repository: testRepo})
	_, err := client.FetchLatestManifest(context.Background())
	if !errs.Is(err, errs.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestListContentsRecurses(t *testing.T) {
	_, client := newRegistry(t, `{"launcher":"1.0.0","modpack":"1.0.0"}`)

	entries, err := client.ListContents(context.Background(), "Minecraft/game", "v1.0.1")
	if err != nil {
		t.Fatalf("ListContents: %v", err)
	}

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	want := []string{"Minecraft/game/options.txt", "Minecraft/game/mods/fabric-api.jar"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestDownloadToReportsProgress(t *testing.T) {
	srv, client := newRegistry(t, `{"launcher":"1.0.0","modpack":"1.0.0"}`)

	var buf bytes.Buffer
	var last int64
	n, err := client.DownloadTo(context.Background(), srv.URL+"/dl/RBCLauncher.exe", &buf, func(downloaded, total int64) {
		last = downloaded
	})
	if err != nil {
		t.Fatalf("DownloadTo: %v", err)
	}
	if n != 11 || last != 11 || buf.String() != "new-binary!" {
		t.Fatalf("n=%d last=%d body=%q", n, last, buf.String())
	}
}

func TestDownloadStallTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(Options{APIURL: srv.URL, Repository: testRepo, StallTimeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := client.Download(context.Background(), srv.URL+"/slow")
	if !errs.Is(err, errs.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.Contains(err.Error(), "stalled") {
		t.Errorf("expected stall diagnostic, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("stalled download took %s", time.Since(start))
	}
}
