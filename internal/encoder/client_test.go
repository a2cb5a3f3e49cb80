package encoder_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mainline/internal/encoder"
	"mainline/internal/testsupport"
)

func newTestClient(t *testing.T, handler http.Handler) *encoder.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithEncoderURL(server.URL))
	return encoder.New(cfg, encoder.WithHTTPClient(server.Client()))
}

func TestCreateJob(t *testing.T) {
	var gotAuth string
	var gotReq encoder.NewJobRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/jobs" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(encoder.Job{ID: "job-1", Status: encoder.StatusSubmitted})
	}))

	job, err := client.CreateJob(context.Background(), encoder.NewJobRequest{
		SourceLocation: "/uploads/run.avi",
		OutputLocation: "/output/run_480p.mp4",
		TargetHeight:   480,
		AssetKey:       "key-1",
		ProjectID:      "p-1",
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.ID != "job-1" || job.Status != encoder.StatusSubmitted {
		t.Fatalf("unexpected job %+v", job)
	}
	if gotAuth != "Bearer test" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotReq.TargetHeight != 480 || gotReq.AssetKey != "key-1" {
		t.Fatalf("unexpected payload %+v", gotReq)
	}
}

func TestCreateJobRejectsMissingID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(encoder.Job{Status: encoder.StatusSubmitted})
	}))

	if _, err := client.CreateJob(context.Background(), encoder.NewJobRequest{}); err == nil {
		t.Fatal("expected error for job without id")
	}
}

func TestGetJob(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/jobs/job-7" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(encoder.Job{
			ID:             "job-7",
			Status:         encoder.StatusComplete,
			Percent:        100,
			OutputLocation: "/output/done.mp4",
		})
	}))

	job, err := client.GetJob(context.Background(), "job-7")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != encoder.StatusComplete || job.OutputLocation != "/output/done.mp4" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestRateLimitSurfacesSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	if _, err := client.GetJob(context.Background(), "job-1"); !errors.Is(err, encoder.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := client.CreateJob(context.Background(), encoder.NewJobRequest{}); !errors.Is(err, encoder.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on create, got %v", err)
	}
}

func TestMissingJobSurfacesSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	if _, err := client.GetJob(context.Background(), "job-missing"); !errors.Is(err, encoder.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestServerErrorIncludesBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("unsupported codec"))
	}))

	_, err := client.CreateJob(context.Background(), encoder.NewJobRequest{})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if got := err.Error(); !strings.Contains(got, "unsupported codec") {
		t.Fatalf("expected body snippet in error, got %q", got)
	}
}

func TestStatusTerminality(t *testing.T) {
	terminal := []encoder.JobStatus{encoder.StatusComplete, encoder.StatusError, encoder.StatusCanceled}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
	for _, status := range []encoder.JobStatus{encoder.StatusSubmitted, encoder.StatusProgressing} {
		if status.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", status)
		}
	}
}
