package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// InvitationData holds the fields of an invitation email
type InvitationData struct {
	AppName       string
	WorkspaceName string
	InviterName   string
	Role          string
	AcceptURL     string
	ExpiresAt     time.Time
}

var invitationTemplate = template.Must(template.New("invitation").Parse(invitationEmailTemplate))

// RenderInvitation returns the subject and HTML body of an invitation email
func RenderInvitation(data InvitationData) (string, string, error) {
	if data.AppName == "" {
		data.AppName = "Quill"
	}

	var buf bytes.Buffer
	if err := invitationTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render invitation template: %w", err)
	}

	subject := fmt.Sprintf("You've been invited to join %s on %s", data.WorkspaceName, data.AppName)
	return subject, buf.String(), nil
}

const invitationEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Join {{.WorkspaceName}} on {{.AppName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #0066cc; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
        .link { word-break: break-all; color: #0066cc; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>You're invited to {{.WorkspaceName}}</h2>

    <p>{{if .InviterName}}{{.InviterName}} has invited you{{else}}You have been invited{{end}} to collaborate as <strong>{{.Role}}</strong>.</p>

    <p>
        <a href="{{.AcceptURL}}" class="button">Accept Invitation</a>
    </p>

    <p>Or copy and paste this link into your browser:</p>
    <p class="link">{{.AcceptURL}}</p>

    <p>This invitation expires on {{.ExpiresAt.Format "January 2, 2006"}}.</p>

    <div class="footer">
        <p>If you weren't expecting this invitation, you can safely ignore this email.</p>
    </div>
</body>
</html>`
