package api

import (
	"encoding/json"
	"strings"
)

const StatusReady = "Ready"

// SubscriptionCommand is a command applied to a sync subscription.
type SubscriptionCommand string

const (
	SubscriptionUnknown SubscriptionCommand = "Unknown"
	SubscriptionCreate  SubscriptionCommand = "Create"
	SubscriptionEdit    SubscriptionCommand = "Edit"
	SubscriptionCancel  SubscriptionCommand = "Cancel"
)

// SessionCommand is a command applied to a sync session.
type SessionCommand string

const (
	SessionUnknown    SessionCommand = "Unknown"
	SessionCreate     SessionCommand = "Create"
	SessionRecordRead SessionCommand = "RecordRead"
	SessionComplete   SessionCommand = "Complete"
	SessionCancel     SessionCommand = "Cancel"
)

type SystemComponent struct {
	Name          string `json:"name"`
	Message       string `json:"message"`
	Status        string `json:"status"`
	BuildDateTime string `json:"buildDateTime"`
	BuildVersion  string `json:"buildVersion"`
}

type SystemReport struct {
	GeneralStatus string            `json:"generalStatus"`
	Name          string            `json:"name"`
	Components    []SystemComponent `json:"components"`
}

// Ready reports whether the general status is Ready, ignoring case.
func (r *SystemReport) Ready() bool {
	return strings.EqualFold(r.GeneralStatus, StatusReady)
}

type FeedTopic struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Feed struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Topics      []FeedTopic `json:"topics,omitempty"`
}

type FeedList struct {
	Results []Feed `json:"results"`
}

// SubscriptionRequest describes a subscription to create. Fields not
// supported by the active profile are dropped from the request body.
type SubscriptionRequest struct {
	Name                  string
	FeedName              string
	AgencyID              string
	Topics                []string
	ElementClassification string
	SpecificationOrg      string
	IdempotencyKey        string
}

type Subscription struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	FeedName string `json:"feedName,omitempty"`
	FeedID   string `json:"feedId,omitempty"`
	Status   string `json:"status,omitempty"`
}

// subscriptionEnvelope accepts both the bare and the wrapped
// create-subscription response shapes.
type subscriptionEnvelope struct {
	Subscription
	Wrapped *Subscription `json:"subscription"`
}

func (e *subscriptionEnvelope) resolve() Subscription {
	if e.Wrapped != nil && e.Wrapped.ID != "" {
		return *e.Wrapped
	}
	return e.Subscription
}

type SubscriptionList struct {
	Results    []Subscription `json:"results"`
	TotalCount int            `json:"totalCount"`
}

type PeekResult struct {
	DataAvailable *bool `json:"dataAvailable"`
}

type SessionInfo struct {
	ID                 string `json:"id"`
	SubscriptionID     string `json:"subscriptionId,omitempty"`
	SequenceRangeLimit int    `json:"sequenceRangeLimit,omitempty"`
	Status             string `json:"status,omitempty"`
}

type SessionResponse struct {
	SyncDataAvailable *bool        `json:"syncDataAvailable"`
	Session           *SessionInfo `json:"session"`
}

// TopicPage is one page of a topic read. Results are passed through
// without interpretation.
type TopicPage struct {
	Results         []json.RawMessage `json:"results"`
	Offset          int               `json:"offset"`
	Limit           int               `json:"limit"`
	PageNumber      int               `json:"pageNumber"`
	TotalCount      int               `json:"totalCount"`
	HasNextPage     bool              `json:"hasNextPage"`
	HasPreviousPage bool              `json:"hasPreviousPage"`
}

// FirstRecord returns the 1-based position of the first record on the page.
func (p *TopicPage) FirstRecord() int {
	if p.PageNumber > 0 {
		return (p.PageNumber-1)*p.Limit + 1
	}
	return 1
}
