package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestQueryFilings(t *testing.T) {
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/filing/v101/filings" {
			t.Errorf("expected path /filing/v101/filings, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("Origin") != "CAL" || q.Get("limit") != "50" || q.Get("aid") != "SFO" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Has("FilingId") || q.Has("offset") {
			t.Errorf("empty filters should not be sent: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"filingNid":"f-1"}],"totalCount":1}`))
	}, "filing-v101")

	page, err := c.QueryFilings(context.Background(), FilingQuery{Origin: "CAL", Limit: 50})
	if err != nil {
		t.Fatalf("QueryFilings failed: %v", err)
	}
	if !strings.Contains(string(page), `"filingNid":"f-1"`) {
		t.Errorf("payload should pass through unchanged, got %s", page)
	}
}

func TestFetchFilingElement(t *testing.T) {
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cal/v101/filing-elements/el-7" {
			t.Errorf("expected path /cal/v101/filing-elements/el-7, got %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"elementNid":"el-7"}`))
	}, "cal-v101")

	element, err := c.FetchFilingElement(context.Background(), "el-7")
	if err != nil {
		t.Fatalf("FetchFilingElement failed: %v", err)
	}
	if string(element) != `{"elementNid":"el-7"}` {
		t.Errorf("unexpected element %s", element)
	}
}

func TestFetchEfileContent_Raw(t *testing.T) {
	const efile = "HDR,CAL,2.01\nF460,..."
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/filing/v101/filings/f-1/contents/efiling" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("contentType") != "efile" {
			t.Errorf("expected contentType=efile, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(efile))
	}, "filing-v101")

	content, err := c.FetchEfileContent(context.Background(), "f-1")
	if err != nil {
		t.Fatalf("FetchEfileContent failed: %v", err)
	}
	if string(content) != efile {
		t.Errorf("expected raw content %q, got %q", efile, content)
	}
}

func TestFetchFiling_NotFound(t *testing.T) {
	c := newTestCampaign(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such filing", http.StatusNotFound)
	}, "filing-v101")

	_, err := c.FetchFiling(context.Background(), "missing")
	te, ok := err.(*TransportError)
	if !ok || te.StatusCode != http.StatusNotFound {
		t.Errorf("expected TransportError 404, got %v", err)
	}
}
