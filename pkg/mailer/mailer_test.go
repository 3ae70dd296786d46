package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Port: 2525, User: "u", Password: "p", Sender: "no-reply@flavoriz.app"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}

	err := m.Send(context.Background(), Message{To: "bob@example.com", Subject: "Invite", Body: "<p>Join my plan</p>"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.test:2525", gotAddr)
	assert.Equal(t, "no-reply@flavoriz.app", gotFrom)
	assert.Equal(t, []string{"bob@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Content-Type: text/html; charset=UTF-8\r\n")
	assert.True(t, strings.HasPrefix(string(gotMsg), "To: bob@example.com\r\n"))
}

func TestSMTPMailer_Validation(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Port: 25, Sender: "a@b.c"})
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("sendMail must not be called for invalid messages")
		return nil
	}

	assert.Error(t, m.Send(context.Background(), Message{Subject: "x"}))
	assert.Error(t, m.Send(context.Background(), Message{To: "x@y.z"}))

	noSender := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Port: 25})
	assert.Error(t, noSender.Send(context.Background(), Message{To: "x@y.z", Subject: "s"}))
}

func TestSMTPMailer_RelayError(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Port: 25, Sender: "a@b.c"})
	m.sendMail = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		assert.Nil(t, a, "no auth without credentials")
		return errors.New("connection refused")
	}

	err := m.Send(context.Background(), Message{To: "x@y.z", Subject: "s", Body: "plain"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestBuildMessage_PlainText(t *testing.T) {
	raw := string(buildMessage("a@b.c", Message{To: "x@y.z", Subject: "Hi", Body: "hello"}))
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhello\r\n"))
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, NewLogMailer(zap.NewNop()).Send(context.Background(), Message{To: "x@y.z", Subject: "s"}))
}
