package appupdate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeReleaseVersion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "valid with prefix", input: "v1.2.3", want: "v1.2.3"},
		{name: "valid without prefix", input: "1.2.3", want: "v1.2.3"},
		{name: "short form canonicalized", input: "v1.2", want: "v1.2.0"},
		{name: "pre-release skipped", input: "v1.2.3-rc.1", want: ""},
		{name: "dev skipped", input: "dev", want: ""},
		{name: "empty skipped", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeReleaseVersion(tt.input); got != tt.want {
				t.Fatalf("NormalizeReleaseVersion(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectInstallMethod(t *testing.T) {
	tests := []struct {
		path string
		want InstallMethod
	}{
		{path: "/opt/homebrew/Cellar/keydash/1.2.3/bin/keydash", want: InstallMethodHomebrew},
		{path: "/Users/test/go/bin/keydash", want: InstallMethodGoInstall},
		{path: "/tmp/keydash", want: InstallMethodUnknown},
		{path: "", want: InstallMethodUnknown},
	}
	for _, tt := range tests {
		if got := detectInstallMethod(tt.path); got != tt.want {
			t.Errorf("detectInstallMethod(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		current    string
		tag        string
		wantUpdate bool
	}{
		{name: "newer release", current: "v1.0.0", tag: "v1.1.0", wantUpdate: true},
		{name: "same release", current: "1.1.0", tag: "v1.1.0", wantUpdate: false},
		{name: "older release", current: "v2.0.0", tag: "v1.9.9", wantUpdate: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("User-Agent"); got == "" {
					t.Error("missing User-Agent")
				}
				w.Write([]byte(`{"tag_name":"` + tt.tag + `"}`))
			}))
			defer server.Close()

			res, err := Check(context.Background(), CheckOptions{
				CurrentVersion:   tt.current,
				ExecutablePath:   "/tmp/keydash",
				LatestReleaseURL: server.URL,
			})
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if res.UpdateAvailable != tt.wantUpdate {
				t.Fatalf("UpdateAvailable = %v, want %v (latest %s)", res.UpdateAvailable, tt.wantUpdate, res.LatestVersion)
			}
		})
	}
}

func TestCheck_DevBuildSkipsNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	res, err := Check(context.Background(), CheckOptions{CurrentVersion: "dev", LatestReleaseURL: server.URL})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if called || res.UpdateAvailable {
		t.Fatalf("dev build should not check: called=%v res=%+v", called, res)
	}
}

func TestCheck_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := Check(context.Background(), CheckOptions{CurrentVersion: "v1.0.0", LatestReleaseURL: server.URL}); err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}

func TestIsGitHubAPI(t *testing.T) {
	if !isGitHubAPI("https://api.github.com/repos/x/y/releases/latest") {
		t.Fatal("GitHub API URL not recognized")
	}
	if isGitHubAPI("http://api.github.com/x") || isGitHubAPI("https://example.com") {
		t.Fatal("token must only go to https api.github.com")
	}
}
