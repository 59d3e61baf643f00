// Package notify delivers account emails (verification codes, reset tokens)
// off the request path: engines enqueue, a worker goroutine sends.
package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

var verificationTmpl = template.Must(template.New("verification").Parse(`Dear {{.Name}},

Here is your code to verify your email: {{.Code}}

This code is valid for {{.Minutes}} minute(s).

If you did not request this, please ignore this email.
`))

var resetTmpl = template.Must(template.New("reset").Parse(`Hello,

We received a request to reset the password for {{.Email}}.

Your password reset token is: {{.Token}}

The token is valid for {{.Minutes}} minute(s). If you did not ask for a reset, you can ignore this email.
`))

func minutes(ttl time.Duration) int {
	m := int(ttl.Round(time.Minute) / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

// VerificationMessage builds the OTP email sent on registration and resend.
func VerificationMessage(to, name, code string, ttl time.Duration) (Message, error) {
	if name == "" {
		name = to
	}
	var body bytes.Buffer
	err := verificationTmpl.Execute(&body, struct {
		Name, Code string
		Minutes    int
	}{name, code, minutes(ttl)})
	if err != nil {
		return Message{}, fmt.Errorf("render verification email: %w", err)
	}
	return Message{To: to, Subject: "Your OTP Code for Verification", Body: body.String()}, nil
}

// ResetMessage builds the password reset email.
func ResetMessage(to, token string, ttl time.Duration) (Message, error) {
	var body bytes.Buffer
	err := resetTmpl.Execute(&body, struct {
		Email, Token string
		Minutes      int
	}{to, token, minutes(ttl)})
	if err != nil {
		return Message{}, fmt.Errorf("render reset email: %w", err)
	}
	return Message{To: to, Subject: "Password Reset Request", Body: body.String()}, nil
}
