package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/api"
	"github.com/netfile/campaign-sync/internal/config"
	"github.com/netfile/campaign-sync/internal/syncer"
)

func sampleBatch() *syncer.BatchResult {
	return &syncer.BatchResult{
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Results: []syncer.TargetResult{
			{Target: "cal", Result: &syncer.Result{
				SessionsCompleted: 1,
				Topics:            map[string]*syncer.TopicStats{"filing-activities": {Pages: 3, Records: 5}},
			}},
			{Target: "sfo", Err: errors.New("boom")},
		},
		Errors: []string{"sfo: boom"},
	}
}

func syncedBatch() *syncer.BatchResult {
	return &syncer.BatchResult{
		Total:     1,
		Succeeded: 1,
		Results: []syncer.TargetResult{
			{Target: "cal", Result: &syncer.Result{
				SessionsCompleted: 1,
				Topics:            map[string]*syncer.TopicStats{"filing-activities": {Pages: 3, Records: 5}},
			}},
		},
	}
}

func notReadyBatch() *syncer.BatchResult {
	return &syncer.BatchResult{
		Total:     2,
		Succeeded: 1,
		NotReady:  1,
		Results: []syncer.TargetResult{
			{Target: "cal", Result: &syncer.Result{Topics: map[string]*syncer.TopicStats{}}},
			{Target: "sfo", Err: &api.NotReadyError{Status: "Maintenance"}},
		},
	}
}

func TestClient_SendSuccess(t *testing.T) {
	var gotPath, gotTitle, gotTags, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	cfg := &config.NotifyConfig{Enabled: true, Server: server.URL + "/", Topic: "campaign", Priority: "default", Tags: "inbox_tray", Token: "tk"}
	client := NewClient(cfg, zap.NewNop())

	if err := client.SendSuccess(context.Background(), syncedBatch(), "2025-03-04 10:00", 90*time.Second); err != nil {
		t.Fatalf("SendSuccess failed: %v", err)
	}

	if gotPath != "/campaign" {
		t.Errorf("expected path /campaign, got %s", gotPath)
	}
	if gotTitle != "Sync Complete: 2025-03-04 10:00" {
		t.Errorf("unexpected title %q", gotTitle)
	}
	if gotTags != "inbox_tray,white_check_mark" {
		t.Errorf("unexpected tags %q", gotTags)
	}
	if gotAuth != "Bearer tk" {
		t.Errorf("unexpected authorization %q", gotAuth)
	}
	if !strings.Contains(gotBody, "- cal: 5 records in 1 sessions") {
		t.Errorf("body should list per-target records, got %q", gotBody)
	}
}

func TestClient_SendFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Priority") != "high" {
			t.Errorf("failures should be sent with high priority, got %q", r.Header.Get("Priority"))
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := &config.NotifyConfig{Enabled: true, Server: server.URL, Topic: "campaign", Priority: "low"}
	err := NewClient(cfg, zap.NewNop()).SendFailure(context.Background(), sampleBatch(), "run", time.Second, errors.New("boom"))
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestNew_Disabled(t *testing.T) {
	n := New(&config.NotifyConfig{}, zap.NewNop())
	if _, ok := n.(*NoopNotifier); !ok {
		t.Errorf("expected NoopNotifier, got %T", n)
	}
}

func TestFormatFailureMessage(t *testing.T) {
	batch := sampleBatch()
	batch.Errors = []string{"a", "b", "c", "d"}

	msg := FormatFailureMessage(batch, 2*time.Minute, errors.New("run failed"))
	for _, want := range []string{"Failed: 1", "Error: run failed", "- a", "- c", "and 1 more errors"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message should contain %q, got:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "- d") {
		t.Errorf("message should list at most 3 errors, got:\n%s", msg)
	}
}

func TestClient_NotReadyIsDeferred(t *testing.T) {
	var gotTitle, gotTags, gotPriority, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	cfg := &config.NotifyConfig{Enabled: true, Server: server.URL, Topic: "campaign", Priority: "default", Tags: "inbox_tray"}
	batch := notReadyBatch()
	err := NewClient(cfg, zap.NewNop()).SendFailure(context.Background(), batch, "run", time.Second, batch.Err())
	if err != nil {
		t.Fatalf("SendFailure failed: %v", err)
	}

	if gotTitle != "Sync Deferred: run" {
		t.Errorf("unexpected title %q", gotTitle)
	}
	if gotTags != "inbox_tray,hourglass" {
		t.Errorf("unexpected tags %q", gotTags)
	}
	if gotPriority != "default" {
		t.Errorf("not-ready runs should keep the configured priority, got %q", gotPriority)
	}
	if !strings.Contains(gotBody, "- sfo: server status Maintenance") {
		t.Errorf("body should name the target that was not ready, got %q", gotBody)
	}
}

func TestClassify(t *testing.T) {
	idle := syncedBatch()
	idle.Results[0].Result.Topics = map[string]*syncer.TopicStats{}

	mixed := notReadyBatch()
	mixed.Failed = 1

	tests := []struct {
		name  string
		batch *syncer.BatchResult
		err   error
		want  Outcome
	}{
		{"synced", syncedBatch(), nil, OutcomeSynced},
		{"idle", idle, nil, OutcomeIdle},
		{"not ready", notReadyBatch(), errors.New("sfo: not ready"), OutcomeNotReady},
		{"failed", sampleBatch(), errors.New("boom"), OutcomeFailed},
		{"failed and not ready", mixed, errors.New("boom"), OutcomeFailed},
		{"no batch", nil, errors.New("boom"), OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.batch, tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
