package services

import (
	"fmt"

	"github.com/safeanchor/safeanchor/internal/models"
)

// Rendered email bodies for account lifecycle notifications. Every message
// carries both a plain-text and an HTML alternative.

func verificationSubject(kind models.UserKind) string {
	if kind == models.UserKindExpert {
		return "Verify Your Email - Safe Anchor Expert"
	}
	return "Verify Your Email - Safe Anchor"
}

func verificationText(code, firstName string) string {
	return fmt.Sprintf("Hi %s,\n\nYour Safe Anchor verification code is %s.\n\nThe code expires in 10 minutes. If you did not create an account, you can ignore this message.\n", firstName, code)
}

func verificationHTML(code, firstName string, kind models.UserKind) string {
	role := "account"
	if kind == models.UserKindExpert {
		role = "expert account"
	}
	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:480px">
<p>Hi %s,</p>
<p>Use the code below to verify your Safe Anchor %s:</p>
<h2 style="letter-spacing:4px">%s</h2>
<p>The code expires in 10 minutes.</p>
<p>If you did not create an account, you can ignore this message.</p>
</div>`, firstName, role, code)
}

func resetSubject() string {
	return "Safe Anchor - Password Reset Code"
}

func resetText(code string) string {
	return fmt.Sprintf("You requested a password reset for your Safe Anchor account.\n\nYour password reset code is %s. It expires in 1 hour.\n\nIf you did not request this, please ignore this email.\n", code)
}

func resetHTML(code string) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:480px">
<p>You requested a password reset for your Safe Anchor account.</p>
<p>Copy the code below to reset your password:</p>
<h2 style="letter-spacing:4px">%s</h2>
<p>The code expires in 1 hour. If you did not request this, please ignore this email.</p>
</div>`, code)
}
