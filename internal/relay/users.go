package relay

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/core/events"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
)

// ListUsers passes the caller's query through unchanged.
func (s *Service) ListUsers(ctx context.Context, id internal.Identity, params url.Values) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, "/users", cloneParams(params))
}

// CreateUser always files the new user under the caller's branch.
func (s *Service) CreateUser(ctx context.Context, id internal.Identity, body map[string]any) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	user := cloneBody(body)
	user["location_id"] = id.LocationID

	payload, err := c.Post(ctx, "/users", user)
	s.audit(ctx, events.EventTypeUserCreated, id, createdID(payload), err)
	return payload, err
}

func (s *Service) GetUser(ctx context.Context, id internal.Identity, userID int64) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	payload, err := c.Get(ctx, fmt.Sprintf("/users/%d", userID), nil)
	if err != nil {
		return nil, err
	}
	if s.opts.EnforceLocationScope && !inBranch(payload, id.LocationID, "location") {
		s.log(ctx).Warn("user outside caller branch", "user_id", userID, "location_id", id.LocationID)
		return nil, internal.ErrOutOfBranchScope
	}
	return payload, nil
}

func (s *Service) GetUserAssets(ctx context.Context, id internal.Identity, userID int64, params url.Values) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, fmt.Sprintf("/users/%d/hardware", userID), cloneParams(params))
}

// FindUserByUsername returns the upstream list envelope for an exact
// username filter.
func (s *Service) FindUserByUsername(ctx context.Context, id internal.Identity, username string) (any, error) {
	c, err := s.client(id)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, "/users", url.Values{"username": {username}})
}

// LookupUser resolves a username to a single upstream user record.
func (s *Service) LookupUser(ctx context.Context, id internal.Identity, username string) (normalize.Row, error) {
	payload, err := s.FindUserByUsername(ctx, id, username)
	if err != nil {
		return nil, err
	}
	rows := s.rows(ctx, "/users?username", payload)
	if len(rows) == 0 {
		return nil, internal.ErrUserNotFound
	}
	return rows[0], nil
}

// createdID reads the new record id from the vendor's
// {"status": "success", "payload": {"id": ...}} reply.
func createdID(payload any) int64 {
	reply, ok := payload.(map[string]any)
	if !ok {
		return 0
	}
	record, ok := reply["payload"].(map[string]any)
	if !ok {
		record = reply
	}
	id, err := strconv.ParseInt(normalize.Text(record["id"]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
