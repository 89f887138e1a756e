package audit

import (
	"time"
)

// Action names an activity that is recorded in a workspace's log
type Action string

const (
	// Membership and invitation actions
	ActionInvitedMember       Action = "invited_member"
	ActionMemberJoined        Action = "member_joined"
	ActionMemberRemoved       Action = "member_removed"
	ActionRoleChanged         Action = "role_changed"
	ActionInvitationCancelled Action = "invitation_cancelled"
	ActionInvitationResent    Action = "invitation_resent"

	// Content and account actions recorded by the publishing services
	ActionPostCreated      Action = "post_created"
	ActionPostScheduled    Action = "post_scheduled"
	ActionPostPublished    Action = "post_published"
	ActionPostApproved     Action = "post_approved"
	ActionPostDeleted      Action = "post_deleted"
	ActionAccountConnected Action = "account_connected"
)

// ResourceType names the kind of object an activity refers to
type ResourceType string

const (
	ResourceTypeInvitation ResourceType = "invitation"
	ResourceTypeMember     ResourceType = "member"
	ResourceTypePost       ResourceType = "post"
	ResourceTypeAccount    ResourceType = "account"
)

const (
	// DefaultFeedLimit is used when a feed request does not specify a limit
	DefaultFeedLimit = 20
	// MaxFeedLimit caps a single feed page
	MaxFeedLimit = 100
)

// Entry is one append-only activity log row
type Entry struct {
	ID           int64                  `json:"id"`
	WorkspaceID  int64                  `json:"workspace_id"`
	UserID       int64                  `json:"user_id"`
	Action       Action                 `json:"action"`
	ResourceType ResourceType           `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// FeedItem is an entry annotated for display
type FeedItem struct {
	*Entry
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Message   string `json:"message"`
}

// ClampLimit normalizes a requested feed size to [1, MaxFeedLimit].
// Non-positive values select DefaultFeedLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		return MaxFeedLimit
	}
	return limit
}
