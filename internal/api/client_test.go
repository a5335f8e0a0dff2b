package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCampaign(t *testing.T, handler http.HandlerFunc, profile string) *Campaign {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := LookupProfile(profile)
	if err != nil {
		t.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, "test-key", "test-pass", 0, 30*time.Second, logger)
	return NewCampaign(client, p, Scope{Domain: "filing", AgencyID: "SFO"}, logger)
}

func TestSystemReport_Success(t *testing.T) {
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		// Verify auth
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-key" || pass != "test-pass" {
			t.Errorf("expected basic auth test-key/test-pass, got %s/%s", user, pass)
		}

		if r.URL.Path != "/system" {
			t.Errorf("expected path /system, got %s", r.URL.Path)
		}

		if got := r.URL.Query().Get("aid"); got != "SFO" {
			t.Errorf("expected aid=SFO, got %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SystemReport{
			GeneralStatus: "ready",
			Name:          "Campaign API",
			Components:    []SystemComponent{{Name: "sync", Status: "Ready"}},
		})
	}, "filing-v101")

	report, err := c.SystemReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Ready() {
		t.Errorf("expected lower-case ready to count as Ready")
	}

	if len(report.Components) != 1 {
		t.Errorf("expected 1 component, got %d", len(report.Components))
	}
}

func TestDo_UnexpectedStatus(t *testing.T) {
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}, "filing-v101")

	_, err := c.Feeds(context.Background())

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	if terr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", terr.StatusCode)
	}

	if terr.Body != "upstream down" {
		t.Errorf("expected body in error, got %q", terr.Body)
	}
}

func TestDo_NetworkFailure(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	client := NewClient("http://127.0.0.1:1", "k", "p", 0, time.Second, logger)
	c := NewCampaign(client, filingV101, Scope{Domain: "filing"}, logger)

	_, err := c.SystemReport(context.Background())

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if terr.Err == nil {
		t.Error("expected wrapped network error")
	}
}

func TestCreateSubscription_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare", `{"id":"sub-1","name":"mine"}`},
		{"wrapped", `{"subscription":{"id":"sub-1","name":"mine"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.Header.Get("Idempotency-Key") != "key-1" {
					t.Errorf("expected idempotency key header")
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(tt.body))
			}, "filing-v101")

			sub, err := c.CreateSubscription(context.Background(), SubscriptionRequest{Name: "mine", IdempotencyKey: "key-1"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sub.ID != "sub-1" {
				t.Errorf("expected sub-1, got %q", sub.ID)
			}
		})
	}
}

func TestCreateSubscription_BodyFollowsProfile(t *testing.T) {
	var body map[string]any
	handler := func(w http.ResponseWriter, r *http.Request) {
		body = nil
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"id":"sub-1"}`))
	}
	req := SubscriptionRequest{
		Name:                  "mine",
		FeedName:              "cal_v101",
		Topics:                []string{"element-activities"},
		ElementClassification: "UnItemizedTransaction",
	}

	legacy := newTestCampaign(t, handler, "cal-v101")
	if _, err := legacy.CreateSubscription(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if body["feedName"] != "cal_v101" || body["topics"] != nil {
		t.Errorf("legacy profile should send feed name only, got %v", body)
	}

	filtered := newTestCampaign(t, handler, "filing-v101")
	if _, err := filtered.CreateSubscription(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if body["feedName"] != nil || body["elementClassification"] != "UnItemizedTransaction" {
		t.Errorf("filtered profile should send filters, got %v", body)
	}
}

func TestCreateSubscription_MissingID(t *testing.T) {
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"mine"}`))
	}, "filing-v101")

	_, err := c.CreateSubscription(context.Background(), SubscriptionRequest{Name: "mine"})

	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestCreateSession_MissingSyncDataAvailable(t *testing.T) {
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"session":{"id":"sess-1"}}`))
	}, "filing-v101")

	_, err := c.CreateSession(context.Background(), "sub-1", 10000)

	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestReadTopic_Query(t *testing.T) {
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		expectedPath := "/filing/v101/sync/sessions/sess-1/filing-activities"
		if r.URL.Path != expectedPath {
			t.Errorf("expected path %s, got %s", expectedPath, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "50" || q.Get("offset") != "100" {
			t.Errorf("unexpected paging query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"results":[{"a":1}],"offset":100,"limit":50,"pageNumber":3,"totalCount":101,"hasNextPage":false,"hasPreviousPage":true}`))
	}, "filing-v101")

	page, err := c.ReadTopic(context.Background(), "sess-1", "filing-activities", 50, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Results) != 1 || page.HasNextPage || page.FirstRecord() != 101 {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestPeekSubscription_Unsupported(t *testing.T) {
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, "cal-v101")

	_, err := c.PeekSubscription(context.Background(), "sub-1")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
