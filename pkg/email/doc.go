// Package email delivers transactional mail for Quill.
//
// SMTPSender talks to an SMTP relay with a per-message timeout. LogSender is
// a stand-in for development that only logs what would have been sent.
// RenderInvitation produces the subject and HTML body of invitation emails.
package email
