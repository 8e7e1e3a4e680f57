// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package guard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nontawat9304/mali-chat/internal/model"
)

func memberSession() *model.Session {
	return &model.Session{Nickname: "Mali", Role: model.RoleMember, Token: "tok"}
}

func adminSession() *model.Session {
	return &model.Session{Nickname: "Boss", Role: model.RoleAdmin, Token: "tok"}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		session *model.Session
		route   Route
		want    Decision
	}{
		{
			name:    "no session redirects to login with return url",
			session: nil,
			route:   Route{Path: "/training"},
			want:    Decision{Action: RedirectLogin, RedirectTo: LoginPath, ReturnURL: "/training"},
		},
		{
			name:    "no session on admin route still goes to login",
			session: nil,
			route:   Route{Path: "/admin", RequiredRole: model.RoleAdmin},
			want:    Decision{Action: RedirectLogin, RedirectTo: LoginPath, ReturnURL: "/admin"},
		},
		{
			name:    "member allowed on plain route",
			session: memberSession(),
			route:   Route{Path: "/chat"},
			want:    Decision{Action: Allow},
		},
		{
			name:    "member denied on admin route goes to default screen",
			session: memberSession(),
			route:   Route{Path: "/admin", RequiredRole: model.RoleAdmin},
			want:    Decision{Action: RedirectDefault, RedirectTo: DefaultPath},
		},
		{
			name:    "admin allowed on admin route",
			session: adminSession(),
			route:   Route{Path: "/admin", RequiredRole: model.RoleAdmin},
			want:    Decision{Action: Allow},
		},
		{
			name:    "admin allowed on plain route",
			session: adminSession(),
			route:   Route{Path: "/chat"},
			want:    Decision{Action: Allow},
		},
		{
			name:    "admin denied on member-gated route",
			session: adminSession(),
			route:   Route{Path: "/member-only", RequiredRole: model.RoleMember},
			want:    Decision{Action: RedirectDefault, RedirectTo: DefaultPath},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Check(tt.session, tt.route))
		})
	}
}

// A deny must never leak to login: the user is authenticated, just
// under-privileged.
func TestCheck_DenyIsNeverLogin(t *testing.T) {
	got := Check(memberSession(), Route{Path: "/admin", RequiredRole: model.RoleAdmin})
	require.NotEqual(t, RedirectLogin, got.Action)
	require.Equal(t, DefaultPath, got.RedirectTo)
}
