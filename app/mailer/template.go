package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Kind selects the copy used for an email.
type Kind string

const (
	KindVerifyEmail   Kind = "verify_email"
	KindResetPassword Kind = "reset_password"
)

const subjectPrefix = "EasyStock - "

func init() {
	lang := language.English

	message.SetString(lang, "verify_email.subject", "Verify your email address")
	message.SetString(lang, "verify_email.description", "Thanks for signing up for EasyStock. Click the button below to verify your email address. This link expires in one hour.")
	message.SetString(lang, "verify_email.cta", "Verify Email")

	message.SetString(lang, "reset_password.subject", "Reset your password")
	message.SetString(lang, "reset_password.description", "We received a request to reset your password. Click the button below to choose a new one. If you did not request this, you can ignore this email.")
	message.SetString(lang, "reset_password.cta", "Reset Password")

	message.SetString(lang, "footer.copyright", "© %d EasyStock. All rights reserved.")
	message.SetString(lang, "footer.noreply", "This is an automated message, please do not reply.")
}

type templateData struct {
	Subject      string
	Greeting     string
	Description  string
	Link         string
	CallToAction string
	Copyright    string
	NoReply      string
}

var htmlTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f8f9fa;font-family:Arial,sans-serif;">
<center style="width:100%;padding-top:40px;padding-bottom:40px;">
<table align="center" border="0" cellpadding="0" cellspacing="0" width="100%" style="max-width:600px;">
<tr><td align="center" style="padding:0 0 20px 0;"><h2 style="margin:0;color:#343a40;">Easy Stock</h2></td></tr>
<tr><td align="center" style="background-color:#ffffff;border-radius:8px;border:1px solid #e9ecef;padding:30px;">
<h1 style="font-size:24px;color:#343a40;margin-top:0;margin-bottom:20px;">{{.Subject}}</h1>
{{if .Greeting}}<p style="font-size:16px;color:#495057;margin-bottom:15px;">Hi {{.Greeting}},</p>{{end}}
<p style="font-size:16px;color:#495057;line-height:1.5;margin-bottom:25px;">{{.Description}}</p>
<div style="text-align:center;"><a href="{{.Link}}" style="display:inline-block;padding:12px 25px;background-color:#007bff;color:#ffffff;text-decoration:none;border-radius:6px;font-weight:bold;font-size:16px;">{{.CallToAction}}</a></div>
</td></tr>
<tr><td align="center" style="padding-top:30px;">
<p style="margin:0;color:#adb5bd;">{{.Copyright}}</p>
<p style="margin:5px 0 0 0;color:#adb5bd;">{{.NoReply}}</p>
</td></tr>
</table>
</center>
</body>
</html>
`))

// Compose renders the email of the given kind for a recipient.
func Compose(kind Kind, to, greeting, link string) (Message, error) {
	switch kind {
	case KindVerifyEmail, KindResetPassword:
	default:
		return Message{}, fmt.Errorf("unknown email kind %q", kind)
	}
	p := message.NewPrinter(language.English)

	data := templateData{
		Subject:      p.Sprintf(string(kind) + ".subject"),
		Greeting:     greeting,
		Description:  p.Sprintf(string(kind) + ".description"),
		Link:         link,
		CallToAction: p.Sprintf(string(kind) + ".cta"),
		Copyright:    p.Sprintf("footer.copyright", time.Now().Year()),
		NoReply:      p.Sprintf("footer.noreply"),
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", kind, err)
	}

	text := data.Description + "\n\n" + data.CallToAction + ": " + link + "\n"
	if greeting != "" {
		text = "Hi " + greeting + ",\n\n" + text
	}

	return Message{
		To:      to,
		Subject: subjectPrefix + data.Subject,
		HTML:    buf.String(),
		Text:    text,
	}, nil
}
