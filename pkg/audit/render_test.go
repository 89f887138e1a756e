package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		entry *Entry
		user  string
		want  string
	}{
		{
			name: "invited member",
			entry: &Entry{Action: ActionInvitedMember, Details: map[string]interface{}{
				"email": "a@x.com", "role": "editor",
			}},
			user: "Alice",
			want: "Alice invited a@x.com as editor",
		},
		{
			name:  "member joined",
			entry: &Entry{Action: ActionMemberJoined, Details: map[string]interface{}{"role": "viewer"}},
			user:  "Bob",
			want:  "Bob joined the workspace as viewer",
		},
		{
			name: "role changed",
			entry: &Entry{Action: ActionRoleChanged, Details: map[string]interface{}{
				"email": "c@x.com", "old_role": "viewer", "new_role": "admin",
			}},
			user: "Alice",
			want: "Alice changed c@x.com from viewer to admin",
		},
		{
			name:  "unknown action falls back",
			entry: &Entry{Action: Action("exported_report")},
			user:  "Alice",
			want:  "Alice performed exported_report",
		},
		{
			name:  "missing details render empty",
			entry: &Entry{Action: ActionInvitedMember},
			user:  "Alice",
			want:  "Alice invited  as ",
		},
		{
			name:  "non-string detail values",
			entry: &Entry{Action: ActionPostScheduled, Details: map[string]interface{}{"scheduled_for": 1700000000}},
			user:  "Dana",
			want:  "Dana scheduled a post for 1700000000",
		},
		{
			name:  "empty user name",
			entry: &Entry{Action: ActionPostCreated},
			want:  " created a post",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.entry, tt.user))
		})
	}
}

func TestRender_NeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		Render(nil, "x")
		Render(&Entry{}, "")
		Render(&Entry{Action: Action("{user}"), Details: map[string]interface{}{"user": nil}}, "x")
	})
	assert.Equal(t, "", Render(nil, "x"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultFeedLimit, ClampLimit(0))
	assert.Equal(t, DefaultFeedLimit, ClampLimit(-5))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 50, ClampLimit(50))
	assert.Equal(t, MaxFeedLimit, ClampLimit(1000))
}
