package container

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/easystock/app/mailer"
	"github.com/FACorreiaa/easystock/config"
)

func TestNewMailSender(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		cfg     config.MailConfig
		want    any
		wantErr bool
	}{
		{name: "DefaultIsLog", cfg: config.MailConfig{}, want: &mailer.LogSender{}},
		{name: "SMTP", cfg: config.MailConfig{Transport: "smtp", SMTP: config.SMTPConfig{Host: "smtp.example.com", Port: 587}}, want: &mailer.SMTPSender{}},
		{name: "SendGrid", cfg: config.MailConfig{Transport: "sendgrid", SendGrid: config.SendGridConfig{APIKey: "SG.key"}}, want: &mailer.SendGridSender{}},
		{name: "SendGridWithoutKey", cfg: config.MailConfig{Transport: "sendgrid"}, wantErr: true},
		{name: "Unknown", cfg: config.MailConfig{Transport: "pigeon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := newMailSender(tt.cfg, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, sender)
		})
	}
}
