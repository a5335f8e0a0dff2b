package api

import (
	"errors"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		profile string
		route   RouteName
		vars    map[string]string
		want    string
	}{
		{"cal-v101", RouteSessionCommand, map[string]string{"id": "s1", "command": "Complete"}, "/cal/v101/sync/sessions/s1/commands/Complete"},
		{"cal-v101", RouteSessionTopic, map[string]string{"domain": "ignored", "id": "s1", "topic": "filing-activities"}, "/cal/v101/sync/sessions/s1/filing-activities"},
		{"domain-v101", RouteSubscriptions, map[string]string{"domain": "Global"}, "/Global/v101/sync/subscriptions"},
		{"filing-v101", RouteSubscriptionPeek, map[string]string{"domain": "filing", "id": "a b"}, "/filing/v101/sync/subscriptions/a%20b/peek"},
		{"cal-v101", RouteFilingContent, map[string]string{"id": "f-1"}, "/cal/v101/filings/f-1/contents/efiling"},
		{"domain-v101", RouteFilingElements, map[string]string{"domain": "Global"}, "/Global/v101/filing-elements"},
	}

	for _, tt := range tests {
		t.Run(tt.profile+"/"+string(tt.route), func(t *testing.T) {
			p, err := LookupProfile(tt.profile)
			if err != nil {
				t.Fatal(err)
			}
			got, err := p.Render(tt.route, tt.vars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Path != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Path)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	p, _ := LookupProfile("cal-v101")
	if _, err := p.Render(RouteSubscriptionPeek, nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	if _, err := p.Render(RouteSessionCommand, map[string]string{"id": "s1"}); err == nil {
		t.Error("expected error for unresolved placeholder")
	}

	if _, err := LookupProfile("v9"); err == nil {
		t.Error("expected error for unknown profile")
	}
}
