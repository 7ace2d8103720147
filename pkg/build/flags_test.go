// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   *ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origFlags = buildFlags

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	buildFlags = origFlags

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		want        ldFlags
		wantErr     string
	}{
		{
			name: "Development build",
			want: ldFlags{
				Name: DefaultName, Description: DefaultDescription,
				Time: unknown, Commit: unknown, Version: DefaultVersion,
			},
		},
		{
			name:        "Release build",
			buildName:   "tuner-pro",
			buildTime:   "2025-04-13T10:00:00Z",
			buildCommit: "abcdef123",
			buildVer:    "v1.0.0",
			want: ldFlags{
				Name: "tuner-pro", Description: DefaultDescription,
				Time: "2025-04-13T10:00:00Z", Commit: "abcdef123", Version: "v1.0.0",
			},
		},
		{
			name:     "Version only",
			buildVer: "v0.3.1",
			want: ldFlags{
				Name: DefaultName, Description: DefaultDescription,
				Time: unknown, Commit: unknown, Version: "v0.3.1",
			},
		},
		{
			name:      "Malformed build time",
			buildTime: "13/04/2025",
			wantErr:   "not RFC 3339",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildFlags = defaultFlags()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Initialize() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			if got := *GetBuildFlags(); got != tt.want {
				t.Errorf("GetBuildFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	dev := defaultFlags()
	if got := dev.String(); got != "tuner dev" {
		t.Errorf("String() = %q, want %q", got, "tuner dev")
	}
	if dev.Released() {
		t.Error("development build reported as released")
	}

	rel := &ldFlags{Name: "tuner", Version: "v1.2.0", Commit: "abc1234", Time: "2025-04-13T10:00:00Z"}
	want := "tuner v1.2.0 (commit abc1234, built 2025-04-13T10:00:00Z)"
	if got := rel.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
