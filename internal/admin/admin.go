// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package admin

import (
	"context"
	"fmt"

	"github.com/nontawat9304/mali-chat/internal/api"
	"github.com/nontawat9304/mali-chat/internal/model"
)

// =============================================================================
// ADMIN SERVICE
// =============================================================================

// Service calls the backend's account-administration endpoints.
type Service struct {
	client *api.Client
}

// NewService creates an admin service over the shared API client.
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// UserUpdate carries the mutable account fields. Nil fields are left
// unchanged by the backend.
type UserUpdate struct {
	IsActive *bool              `json:"is_active,omitempty"`
	Role     *model.AccountRole `json:"role,omitempty"`
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]model.AccountInfo, error) {
	var users []model.AccountInfo
	if err := s.client.Get(ctx, "/admin/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser applies the given changes to one account.
func (s *Service) UpdateUser(ctx context.Context, id int64, update UserUpdate) error {
	if update.Role != nil && !update.Role.Valid() {
		return fmt.Errorf("unknown role %q", *update.Role)
	}
	return s.client.Put(ctx, fmt.Sprintf("/admin/users/%d", id), update, nil)
}

// SetActive enables or disables an account's login.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.UpdateUser(ctx, id, UserUpdate{IsActive: &active})
}

// SetRole changes an account's role.
func (s *Service) SetRole(ctx context.Context, id int64, role model.AccountRole) error {
	return s.UpdateUser(ctx, id, UserUpdate{Role: &role})
}

// DeleteUser removes an account permanently.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.client.Delete(ctx, fmt.Sprintf("/admin/users/%d", id), nil)
}
