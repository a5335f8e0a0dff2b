package api

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// RouteName identifies a remote operation independent of API version.
type RouteName string

const (
	RouteSystemReport        RouteName = "system-report"
	RouteFeeds               RouteName = "feeds"
	RouteSubscriptions       RouteName = "subscriptions"
	RouteSubscription        RouteName = "subscription"
	RouteSubscriptionPeek    RouteName = "subscription-peek"
	RouteSubscriptionCommand RouteName = "subscription-command"
	RouteSessions            RouteName = "sessions"
	RouteSessionCommand      RouteName = "session-command"
	RouteSessionTopic        RouteName = "session-topic"
	RouteFiling              RouteName = "filing"
	RouteFilings             RouteName = "filings"
	RouteFilingContent       RouteName = "filing-content"
	RouteFilingElement       RouteName = "filing-element"
	RouteFilingElements      RouteName = "filing-elements"
)

// Capabilities flags the optional protocol features of a profile.
type Capabilities struct {
	// Peek enables the non-consuming data availability check.
	Peek bool
	// RangeLimit sends sequenceRangeLimit when creating sessions.
	RangeLimit bool
	// Filters sends topic, classification and origin filters on
	// subscription creation instead of a feed name.
	Filters bool
	// DomainScoped routes contain a {domain} segment.
	DomainScoped bool
}

// Profile is one version of the Campaign API sync protocol.
type Profile struct {
	Name         string
	Capabilities Capabilities
	Routes       map[RouteName]string
}

var calV101 = Profile{
	Name: "cal-v101",
	Routes: map[RouteName]string{
		RouteSystemReport:        "/system",
		RouteFeeds:               "/cal/v101/sync/feeds",
		RouteSubscriptions:       "/cal/v101/sync/subscriptions",
		RouteSubscription:        "/cal/v101/sync/subscriptions/{id}",
		RouteSubscriptionCommand: "/cal/v101/sync/subscriptions/{id}/commands/{command}",
		RouteSessions:            "/cal/v101/sync/sessions",
		RouteSessionCommand:      "/cal/v101/sync/sessions/{id}/commands/{command}",
		RouteSessionTopic:        "/cal/v101/sync/sessions/{id}/{topic}",
		RouteFiling:              "/cal/v101/filings/{id}",
		RouteFilings:             "/cal/v101/filings",
		RouteFilingContent:       "/cal/v101/filings/{id}/contents/efiling",
		RouteFilingElement:       "/cal/v101/filing-elements/{id}",
		RouteFilingElements:      "/cal/v101/filing-elements",
	},
}

var domainV101 = Profile{
	Name:         "domain-v101",
	Capabilities: Capabilities{DomainScoped: true},
	Routes: map[RouteName]string{
		RouteSystemReport:        "/system",
		RouteFeeds:               "/{domain}/v101/sync/feeds",
		RouteSubscriptions:       "/{domain}/v101/sync/subscriptions",
		RouteSubscription:        "/{domain}/v101/sync/subscriptions/{id}",
		RouteSubscriptionCommand: "/{domain}/v101/sync/subscriptions/{id}/commands/{command}",
		RouteSessions:            "/{domain}/v101/sync/sessions",
		RouteSessionCommand:      "/{domain}/v101/sync/sessions/{id}/commands/{command}",
		RouteSessionTopic:        "/{domain}/v101/sync/sessions/{id}/{topic}",
		RouteFiling:              "/{domain}/v101/filings/{id}",
		RouteFilings:             "/{domain}/v101/filings",
		RouteFilingContent:       "/{domain}/v101/filings/{id}/contents/efiling",
		RouteFilingElement:       "/{domain}/v101/filing-elements/{id}",
		RouteFilingElements:      "/{domain}/v101/filing-elements",
	},
}

var filingV101 = Profile{
	Name: "filing-v101",
	Capabilities: Capabilities{
		Peek:         true,
		RangeLimit:   true,
		Filters:      true,
		DomainScoped: true,
	},
	Routes: map[RouteName]string{
		RouteSystemReport:        "/system",
		RouteFeeds:               "/{domain}/v101/sync/feeds",
		RouteSubscriptions:       "/{domain}/v101/sync/subscriptions",
		RouteSubscription:        "/{domain}/v101/sync/subscriptions/{id}",
		RouteSubscriptionPeek:    "/{domain}/v101/sync/subscriptions/{id}/peek",
		RouteSubscriptionCommand: "/{domain}/v101/sync/subscriptions/{id}/commands/{command}",
		RouteSessions:            "/{domain}/v101/sync/sessions",
		RouteSessionCommand:      "/{domain}/v101/sync/sessions/{id}/commands/{command}",
		RouteSessionTopic:        "/{domain}/v101/sync/sessions/{id}/{topic}",
		RouteFiling:              "/{domain}/v101/filings/{id}",
		RouteFilings:             "/{domain}/v101/filings",
		RouteFilingContent:       "/{domain}/v101/filings/{id}/contents/efiling",
		RouteFilingElement:       "/{domain}/v101/filing-elements/{id}",
		RouteFilingElements:      "/{domain}/v101/filing-elements",
	},
}

var profiles = map[string]Profile{
	calV101.Name:    calV101,
	domainV101.Name: domainV101,
	filingV101.Name: filingV101,
}

// DefaultProfile is the newest protocol version.
const DefaultProfile = "filing-v101"

// LookupProfile returns the named built-in profile.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown api profile %q (valid: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileNames returns the built-in profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Route identifies a rendered remote path.
type Route struct {
	Name RouteName
	Path string
}

// Render expands a route template. Values are path-escaped. A route the
// profile does not define yields ErrUnsupported.
func (p Profile) Render(name RouteName, vars map[string]string) (Route, error) {
	tmpl, ok := p.Routes[name]
	if !ok {
		return Route{}, fmt.Errorf("%s %s: %w", p.Name, name, ErrUnsupported)
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", url.PathEscape(v))
	}
	path := strings.NewReplacer(pairs...).Replace(tmpl)

	if i := strings.IndexByte(path, '{'); i >= 0 {
		return Route{}, fmt.Errorf("%s %s: unresolved placeholder in %q", p.Name, name, path)
	}
	return Route{Name: name, Path: path}, nil
}

// Supports reports whether the profile defines the route.
func (p Profile) Supports(name RouteName) bool {
	_, ok := p.Routes[name]
	return ok
}
