package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// FilingQuery filters the filing and filing element queries. Empty fields
// are not sent.
type FilingQuery struct {
	Origin                string
	FilingID              string
	FilingSpecification   string
	ElementClassification string
	ElementType           string
	Limit                 int
	Offset                int
}

func (q FilingQuery) values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("Origin", q.Origin)
	set("FilingId", q.FilingID)
	set("FilingSpecification", q.FilingSpecification)
	set("ElementClassification", q.ElementClassification)
	set("ElementType", q.ElementType)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// FetchFiling returns one filing by its root filing id.
func (c *Campaign) FetchFiling(ctx context.Context, rootFilingID string) (json.RawMessage, error) {
	var filing json.RawMessage
	if err := c.get(ctx, RouteFiling, map[string]string{"id": rootFilingID}, nil, &filing); err != nil {
		return nil, err
	}
	return filing, nil
}

// QueryFilings returns one page of filings matching q.
func (c *Campaign) QueryFilings(ctx context.Context, q FilingQuery) (json.RawMessage, error) {
	var page json.RawMessage
	if err := c.get(ctx, RouteFilings, nil, q.values(), &page); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Campaign) FetchFilingElement(ctx context.Context, elementID string) (json.RawMessage, error) {
	var element json.RawMessage
	if err := c.get(ctx, RouteFilingElement, map[string]string{"id": elementID}, nil, &element); err != nil {
		return nil, err
	}
	return element, nil
}

func (c *Campaign) QueryFilingElements(ctx context.Context, q FilingQuery) (json.RawMessage, error) {
	var page json.RawMessage
	if err := c.get(ctx, RouteFilingElements, nil, q.values(), &page); err != nil {
		return nil, err
	}
	return page, nil
}

// FetchEfileContent returns the raw e-filing document of a filing.
func (c *Campaign) FetchEfileContent(ctx context.Context, rootFilingID string) ([]byte, error) {
	var content []byte
	params := url.Values{"contentType": {"efile"}}
	if err := c.get(ctx, RouteFilingContent, map[string]string{"id": rootFilingID}, params, &content); err != nil {
		return nil, err
	}
	return content, nil
}
