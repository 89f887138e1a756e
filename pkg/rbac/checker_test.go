package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestAuthorizeMatchesMatrix(t *testing.T) {
	for _, action := range Actions() {
		allowed := AllowedRoles(action)
		for _, role := range Roles() {
			want := false
			for _, r := range allowed {
				if r == role {
					want = true
				}
			}
			assert.Equal(t, want, Authorize(role, action, nil, 1), "role=%s action=%s", role, action)
		}
	}
}

func TestMatrixEntries(t *testing.T) {
	tests := []struct {
		action Action
		roles  []Role
	}{
		{ActionCreatePost, []Role{RoleOwner, RoleAdmin, RoleEditor}},
		{ActionPostNow, []Role{RoleOwner, RoleAdmin}},
		{ActionApprovePost, []Role{RoleOwner, RoleAdmin}},
		{ActionInviteMember, []Role{RoleOwner, RoleAdmin}},
		{ActionRemoveMember, []Role{RoleOwner}},
		{ActionChangeRole, []Role{RoleOwner}},
		{ActionEditOwnPost, []Role{RoleOwner, RoleAdmin, RoleEditor}},
		{ActionEditAnyPost, []Role{RoleOwner, RoleAdmin}},
		{ActionViewAnalytics, []Role{RoleOwner, RoleAdmin, RoleEditor, RoleViewer}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.ElementsMatch(t, tt.roles, AllowedRoles(tt.action))
		})
	}
}

func TestAuthorizeUnknownActionDenies(t *testing.T) {
	for _, role := range Roles() {
		assert.False(t, Authorize(role, Action("launch_rockets"), nil, 1))
	}
}

func TestAuthorizeUnknownRoleDenies(t *testing.T) {
	assert.False(t, Authorize(Role("superuser"), ActionViewAnalytics, nil, 1))
	assert.False(t, Authorize(Role(""), ActionViewAnalytics, nil, 1))
}

func TestAuthorizeOwnVsAny(t *testing.T) {
	const author = int64(7)
	const other = int64(8)

	t.Run("editor may edit their own post", func(t *testing.T) {
		assert.True(t, Authorize(RoleEditor, ActionEditOwnPost, int64Ptr(author), author))
	})

	t.Run("editor may not edit someone else's post", func(t *testing.T) {
		assert.False(t, Authorize(RoleEditor, ActionEditOwnPost, int64Ptr(author), other))
	})

	t.Run("admin may edit someone else's post", func(t *testing.T) {
		assert.True(t, Authorize(RoleAdmin, ActionEditOwnPost, int64Ptr(author), other))
	})

	t.Run("no resource owner evaluates the own action", func(t *testing.T) {
		assert.True(t, Authorize(RoleEditor, ActionEditOwnPost, nil, other))
	})

	t.Run("delete follows the same pairing", func(t *testing.T) {
		assert.True(t, Authorize(RoleEditor, ActionDeleteOwnPost, int64Ptr(author), author))
		assert.False(t, Authorize(RoleEditor, ActionDeleteOwnPost, int64Ptr(author), other))
	})

	t.Run("non-paired actions ignore the owner", func(t *testing.T) {
		assert.True(t, Authorize(RoleEditor, ActionCreatePost, int64Ptr(author), other))
	})
}

func TestResolveAction(t *testing.T) {
	assert.Equal(t, ActionEditOwnPost, ResolveAction(ActionEditOwnPost, int64Ptr(1), 1))
	assert.Equal(t, ActionEditAnyPost, ResolveAction(ActionEditOwnPost, int64Ptr(1), 2))
	assert.Equal(t, ActionEditAnyPost, ResolveAction(ActionEditAnyPost, int64Ptr(1), 1))
	assert.Equal(t, ActionEditOwnPost, ResolveAction(ActionEditOwnPost, nil, 2))
}

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleEditor))
	assert.True(t, RoleEditor.AtLeast(RoleViewer))
	assert.False(t, RoleEditor.AtLeast(RoleAdmin))
	assert.False(t, RoleViewer.AtLeast(RoleEditor))
	assert.False(t, Role("root").AtLeast(RoleViewer))

	roles := Roles()
	for i := 1; i < len(roles); i++ {
		assert.Less(t, roles[i-1].Rank(), roles[i].Rank())
	}
}

func TestCheckAndRequireRole(t *testing.T) {
	err := Check(RoleEditor, ActionEditOwnPost, int64Ptr(1), 2)
	require.Error(t, err)
	var denied *PermissionDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, ActionEditAnyPost, denied.Action)
	assert.Equal(t, RoleEditor, denied.Role)

	assert.NoError(t, Check(RoleOwner, ActionRemoveMember, nil, 1))

	err = RequireRole(RoleEditor, RoleAdmin)
	var insufficient *InsufficientRoleError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "requires admin or higher", err.Error())
	assert.Equal(t, RoleEditor, insufficient.Current)

	assert.NoError(t, RequireRole(RoleOwner, RoleAdmin))
}

func TestParseRoleAndAction(t *testing.T) {
	role, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = ParseRole("godmode")
	assert.Error(t, err)

	action, err := ParseAction("post_now")
	require.NoError(t, err)
	assert.Equal(t, ActionPostNow, action)

	_, err = ParseAction("post_later")
	assert.Error(t, err)
}

func TestPermissionsFor(t *testing.T) {
	viewer := PermissionsFor(RoleViewer)
	assert.Equal(t, []Action{ActionViewActivity, ActionViewAnalytics}, viewer)

	owner := PermissionsFor(RoleOwner)
	assert.Len(t, owner, len(Actions()))
	assert.Empty(t, PermissionsFor(Role("nobody")))
}
