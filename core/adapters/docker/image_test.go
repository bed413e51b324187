package docker

import (
	"errors"
	"strings"
	"testing"

	"github.com/e-commerce/testrunner/core/domain"
)

func TestDrainPullStream(t *testing.T) {
	tests := []struct {
		name    string
		stream  string
		wantErr string
	}{
		{
			name: "success",
			stream: `{"status":"Pulling from library/python","id":"3.12-slim"}
{"status":"Downloading","progressDetail":{"current":10,"total":100},"id":"abc"}
{"status":"Status: Downloaded newer image for python:3.12-slim"}
`,
		},
		{
			name:   "empty",
			stream: "",
		},
		{
			name: "error detail",
			stream: `{"status":"Pulling from library/python"}
{"errorDetail":{"message":"manifest unknown"},"error":"manifest unknown"}
`,
			wantErr: "manifest unknown",
		},
		{
			name:    "bare error",
			stream:  `{"error":"toomanyrequests: rate limit"}`,
			wantErr: "rate limit",
		},
		{
			name:    "garbage",
			stream:  `{"status":`,
			wantErr: "reading image pull response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DrainPullStream(strings.NewReader(tt.stream), nil)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("DrainPullStream() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("DrainPullStream() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDrainPullStreamWrapsPullFailed(t *testing.T) {
	err := DrainPullStream(strings.NewReader(`{"error":"denied"}`), nil)
	if !errors.Is(err, ErrPullFailed) {
		t.Errorf("error = %v, want ErrPullFailed", err)
	}
}

func TestDrainPullStreamReportsProgress(t *testing.T) {
	stream := `{"status":"Pulling from library/python","id":"3.12-slim"}
{"status":"Downloading","progress":"[==>   ] 10B/100B","id":"abc"}
{"error":"boom"}
{"status":"never seen"}
`
	var got []domain.PullProgress
	err := DrainPullStream(strings.NewReader(stream), func(p domain.PullProgress) {
		got = append(got, p)
	})
	if !errors.Is(err, ErrPullFailed) {
		t.Fatalf("error = %v, want ErrPullFailed", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d progress messages, want 2", len(got))
	}
	if got[1].ID != "abc" || got[1].Status != "Downloading" {
		t.Errorf("second message = %+v", got[1])
	}
}

func TestEncodeAuthConfig(t *testing.T) {
	encoded, err := EncodeAuthConfig(domain.AuthConfig{Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("EncodeAuthConfig() error = %v", err)
	}
	if encoded == "" || strings.ContainsAny(encoded, "+/") {
		t.Errorf("EncodeAuthConfig() = %q, want URL-safe base64", encoded)
	}
}
