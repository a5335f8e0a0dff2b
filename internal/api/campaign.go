package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// Campaign is the typed Campaign API surface used by the sync engine. It
// renders routes from its profile and scopes every call to one domain and
// agency.
type Campaign struct {
	gw          Gateway
	profile     Profile
	domain      string
	agencyID    string
	agencyParam string
	logger      *zap.Logger
}

// Scope selects the domain and agency a Campaign talks to.
type Scope struct {
	Domain      string
	AgencyID    string
	AgencyParam string
}

func NewCampaign(gw Gateway, profile Profile, scope Scope, logger *zap.Logger) *Campaign {
	param := scope.AgencyParam
	if param == "" {
		param = "aid"
	}
	return &Campaign{
		gw:          gw,
		profile:     profile,
		domain:      scope.Domain,
		agencyID:    scope.AgencyID,
		agencyParam: param,
		logger:      logger.With(zap.String("domain", scope.Domain), zap.String("agency", scope.AgencyID)),
	}
}

func (c *Campaign) Profile() Profile {
	return c.profile
}

func (c *Campaign) route(name RouteName, vars map[string]string) (Route, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	vars["domain"] = c.domain
	return c.profile.Render(name, vars)
}

func (c *Campaign) query(extra url.Values) url.Values {
	q := url.Values{}
	for k, vs := range extra {
		q[k] = vs
	}
	if c.agencyID != "" {
		q.Set(c.agencyParam, c.agencyID)
	}
	return q
}

func (c *Campaign) get(ctx context.Context, name RouteName, vars map[string]string, params url.Values, out any) error {
	route, err := c.route(name, vars)
	if err != nil {
		return err
	}
	return c.gw.Do(ctx, &Request{Method: http.MethodGet, Route: route, Query: c.query(params)}, out)
}

func (c *Campaign) post(ctx context.Context, name RouteName, vars map[string]string, body any, header http.Header, out any) error {
	route, err := c.route(name, vars)
	if err != nil {
		return err
	}
	return c.gw.Do(ctx, &Request{Method: http.MethodPost, Route: route, Query: c.query(nil), Body: body, Header: header}, out)
}

func (c *Campaign) SystemReport(ctx context.Context) (*SystemReport, error) {
	c.logger.Debug("checking campaign api system status")
	var report SystemReport
	if err := c.get(ctx, RouteSystemReport, nil, nil, &report); err != nil {
		return nil, err
	}
	if report.GeneralStatus == "" {
		return nil, protocolErrorf(string(RouteSystemReport), "response has no generalStatus")
	}
	return &report, nil
}

func (c *Campaign) Feeds(ctx context.Context) ([]Feed, error) {
	var feeds FeedList
	if err := c.get(ctx, RouteFeeds, nil, nil, &feeds); err != nil {
		return nil, err
	}
	return feeds.Results, nil
}

type createSubscriptionBody struct {
	Name                  string   `json:"name"`
	FeedName              string   `json:"feedName,omitempty"`
	AgencyID              string   `json:"aid,omitempty"`
	Topics                []string `json:"topics,omitempty"`
	ElementClassification string   `json:"elementClassification,omitempty"`
	SpecificationOrg      string   `json:"specificationOrg,omitempty"`
}

// CreateSubscription creates a subscription. The body carries filters when
// the profile supports them and a feed name otherwise.
func (c *Campaign) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error) {
	body := createSubscriptionBody{Name: req.Name}
	if c.profile.Capabilities.Filters {
		body.AgencyID = req.AgencyID
		body.Topics = req.Topics
		body.ElementClassification = req.ElementClassification
		body.SpecificationOrg = req.SpecificationOrg
	} else {
		body.FeedName = req.FeedName
	}

	var header http.Header
	if req.IdempotencyKey != "" {
		header = http.Header{"Idempotency-Key": []string{req.IdempotencyKey}}
	}

	c.logger.Debug("creating sync subscription", zap.String("name", req.Name), zap.String("feed", req.FeedName))

	var env subscriptionEnvelope
	if err := c.post(ctx, RouteSubscriptions, nil, body, header, &env); err != nil {
		return nil, err
	}
	sub := env.resolve()
	if sub.ID == "" {
		return nil, protocolErrorf(string(RouteSubscriptions), "response has no subscription id")
	}
	return &sub, nil
}

func (c *Campaign) FetchSubscription(ctx context.Context, id string) (*Subscription, error) {
	var env subscriptionEnvelope
	if err := c.get(ctx, RouteSubscription, map[string]string{"id": id}, nil, &env); err != nil {
		return nil, err
	}
	sub := env.resolve()
	return &sub, nil
}

// QuerySubscriptions lists active subscriptions, optionally restricted to a feed.
func (c *Campaign) QuerySubscriptions(ctx context.Context, feedID string, limit, offset int) (*SubscriptionList, error) {
	params := url.Values{
		"status": {"Active"},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	if feedID != "" {
		params.Set("feedId", feedID)
	}
	var list SubscriptionList
	if err := c.get(ctx, RouteSubscriptions, nil, params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// PeekSubscription reports whether the subscription has data to sync
// without opening a session.
func (c *Campaign) PeekSubscription(ctx context.Context, id string) (bool, error) {
	if !c.profile.Capabilities.Peek {
		return false, ErrUnsupported
	}
	var peek PeekResult
	if err := c.get(ctx, RouteSubscriptionPeek, map[string]string{"id": id}, nil, &peek); err != nil {
		return false, err
	}
	if peek.DataAvailable == nil {
		return false, protocolErrorf(string(RouteSubscriptionPeek), "response has no dataAvailable")
	}
	return *peek.DataAvailable, nil
}

func (c *Campaign) SubscriptionCommand(ctx context.Context, id string, cmd SubscriptionCommand) error {
	c.logger.Debug("executing subscription command", zap.String("subscription", id), zap.String("command", string(cmd)))
	vars := map[string]string{"id": id, "command": string(cmd)}
	return c.post(ctx, RouteSubscriptionCommand, vars, map[string]string{"id": id}, nil, nil)
}

type createSessionBody struct {
	SubscriptionID     string `json:"subscriptionId"`
	SequenceRangeLimit int    `json:"sequenceRangeLimit,omitempty"`
}

// CreateSession opens a sync session. rangeLimit is only sent when the
// profile supports it.
func (c *Campaign) CreateSession(ctx context.Context, subscriptionID string, rangeLimit int) (*SessionResponse, error) {
	body := createSessionBody{SubscriptionID: subscriptionID}
	if c.profile.Capabilities.RangeLimit {
		body.SequenceRangeLimit = rangeLimit
	}

	c.logger.Debug("creating sync session", zap.String("subscription", subscriptionID), zap.Int("range_limit", body.SequenceRangeLimit))

	var resp SessionResponse
	if err := c.post(ctx, RouteSessions, nil, body, nil, &resp); err != nil {
		return nil, err
	}
	if resp.SyncDataAvailable == nil {
		return nil, protocolErrorf(string(RouteSessions), "response has no syncDataAvailable")
	}
	return &resp, nil
}

func (c *Campaign) SessionCommand(ctx context.Context, id string, cmd SessionCommand) error {
	c.logger.Debug("executing session command", zap.String("session", id), zap.String("command", string(cmd)))
	vars := map[string]string{"id": id, "command": string(cmd)}
	return c.post(ctx, RouteSessionCommand, vars, nil, nil, nil)
}

// ReadTopic fetches one page of a topic within a session.
func (c *Campaign) ReadTopic(ctx context.Context, sessionID, topic string, limit, offset int) (*TopicPage, error) {
	params := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	var page TopicPage
	if err := c.get(ctx, RouteSessionTopic, map[string]string{"id": sessionID, "topic": topic}, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
