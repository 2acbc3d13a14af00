package controller

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"tgdash/pkg/model"
)

func (c *Client) Ports(ctx context.Context) ([]model.Port, error) {
	var out []model.Port
	if err := c.do(ctx, http.MethodGet, "/ports", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Statistics(ctx context.Context) (*model.Statistics, error) {
	var out model.Statistics
	if err := c.do(ctx, http.MethodGet, "/statistics", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TimeStatistics fetches the last limit seconds of time series. limit <= 0 asks for everything.
func (c *Client) TimeStatistics(ctx context.Context, limit int) (*model.TimeStatistics, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	var out model.TimeStatistics
	if err := c.do(ctx, http.MethodGet, "/time_statistics", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrafficGen returns the configured tests. An idle controller answers with an empty list.
func (c *Client) TrafficGen(ctx context.Context) (model.TestList, error) {
	var out model.TestList
	if err := c.do(ctx, http.MethodGet, "/trafficgen", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StartTrafficGen(ctx context.Context, def model.TrafficGen) error {
	return c.do(ctx, http.MethodPost, "/trafficgen", nil, def, nil)
}

func (c *Client) StartMultipleTrafficGen(ctx context.Context, tests model.MultipleTrafficGen) error {
	return c.do(ctx, http.MethodPost, "/multiple_trafficgen", nil, tests, nil)
}

func (c *Client) StopTrafficGen(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/trafficgen", nil, nil, nil)
}

func (c *Client) Profiles(ctx context.Context) (*model.ProfileStatus, error) {
	var out model.ProfileStatus
	if err := c.do(ctx, http.MethodGet, "/profiles", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartProfile(ctx context.Context, req model.ProfileRequest) error {
	return c.do(ctx, http.MethodPost, "/profiles", nil, req, nil)
}

func (c *Client) StopProfile(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/profiles", nil, nil, nil)
}

// Reset clears the controller's counters.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/reset", nil, nil, nil)
}

// Restart reboots the controller software.
func (c *Client) Restart(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/restart", nil, nil, nil)
}

func (c *Client) Online(ctx context.Context) (*model.OnlineStatus, error) {
	var out model.OnlineStatus
	if err := c.do(ctx, http.MethodGet, "/online", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Tables(ctx context.Context) (model.Tables, error) {
	var out model.Tables
	if err := c.do(ctx, http.MethodGet, "/tables", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
