package audit

import (
	"fmt"
	"regexp"
)

// fallbackTemplate is used for actions without a template
const fallbackTemplate = "{user} performed {action}"

var templates = map[Action]string{
	ActionInvitedMember:       "{user} invited {email} as {role}",
	ActionMemberJoined:        "{user} joined the workspace as {role}",
	ActionMemberRemoved:       "{user} removed {email} from the workspace",
	ActionRoleChanged:         "{user} changed {email} from {old_role} to {new_role}",
	ActionInvitationCancelled: "{user} cancelled the invitation for {email}",
	ActionInvitationResent:    "{user} resent the invitation to {email}",
	ActionPostCreated:         "{user} created a post",
	ActionPostScheduled:       "{user} scheduled a post for {scheduled_for}",
	ActionPostPublished:       "{user} published a post to {platform}",
	ActionPostApproved:        "{user} approved a post",
	ActionPostDeleted:         "{user} deleted a post",
	ActionAccountConnected:    "{user} connected a {platform} account",
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Render turns an entry into a display message. Unknown actions use a
// generic message and detail fields that are absent render as empty text.
func Render(entry *Entry, userName string) string {
	if entry == nil {
		return ""
	}

	tmpl, ok := templates[entry.Action]
	if !ok {
		tmpl = fallbackTemplate
	}

	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := match[1 : len(match)-1]
		switch key {
		case "user":
			return userName
		case "action":
			return string(entry.Action)
		}
		v, ok := entry.Details[key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}
