package mailer

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"
)

type resetLinkParams struct {
	Code  string `url:"code"`
	Email string `url:"email,omitempty"`
}

// ResetLink points the recipient at the frontend reset form with the code
// prefilled.
func ResetLink(baseURL, code, email string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse public url: %w", err)
	}
	v, err := query.Values(resetLinkParams{Code: code, Email: email})
	if err != nil {
		return "", fmt.Errorf("encode reset link: %w", err)
	}
	u.Path = "/reset-password"
	u.RawQuery = v.Encode()
	return u.String(), nil
}

func PasswordResetEmail(to, name, code, link string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	text := fmt.Sprintf("Hi %s,\n\nForgot your password? Use this code to set a new one: %s\n\n"+
		"Or open: %s\n\nThe code expires in %d minutes. If you didn't forget your password, please ignore this email.",
		name, code, link, minutes)
	html := fmt.Sprintf(`
		<h2>Reset your password</h2>
		<p>Hi %s,</p>
		<p>Your reset code is: <strong style="font-size: 24px;">%s</strong></p>
		<p><a href="%s" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Reset password</a></p>
		<p>The code expires in %d minutes.</p>
		<p>If you didn't forget your password, please ignore this email.</p>
	`, name, code, link, minutes)

	return Message{
		To:      to,
		ToName:  name,
		Subject: fmt.Sprintf("Your password reset code (valid for %d min)", minutes),
		Text:    text,
		HTML:    html,
	}
}

func BookingReceivedEmail(to, name, estateLocation, bookingType, window string) Message {
	text := fmt.Sprintf("Hi %s,\n\nYour estate at %s has a new %s booking%s.", name, estateLocation, bookingType, window)
	return Message{
		To:      to,
		ToName:  name,
		Subject: "New booking for your estate",
		Text:    text,
	}
}

func PasswordChangedEmail(to, name string, at time.Time) Message {
	text := fmt.Sprintf("Hi %s,\n\nYour password was changed on %s. If this wasn't you, reset it immediately.",
		name, at.UTC().Format(time.RFC1123))
	return Message{
		To:      to,
		ToName:  name,
		Subject: "Your password was changed",
		Text:    text,
	}
}
