// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alert sends alert mails when EEPROM hardware misbehaves.
package alert // import "github.com/go-lpc/eeprom/internal/alert"

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"

	mail "gopkg.in/gomail.v2"
)

// Mailer sends alert mails to a list of recipients.
type Mailer struct {
	usr  string
	pwd  string
	srv  string
	port int
	tgts []string

	send func(msg *mail.Message) error
}

// FromEnv creates a mailer configured from the ALERT_MAIL_SERVER,
// ALERT_MAIL_PORT, ALERT_MAIL_USERNAME, ALERT_MAIL_PASSWORD and
// ALERT_MAIL_TGTS (comma separated) environment variables.
func FromEnv() *Mailer {
	port, _ := strconv.Atoi(os.Getenv("ALERT_MAIL_PORT"))
	return New(
		os.Getenv("ALERT_MAIL_SERVER"), port,
		os.Getenv("ALERT_MAIL_USERNAME"), os.Getenv("ALERT_MAIL_PASSWORD"),
		splitTargets(os.Getenv("ALERT_MAIL_TGTS")),
	)
}

// New creates a mailer sending mails through the srv:port SMTP server.
func New(srv string, port int, usr, pwd string, tgts []string) *Mailer {
	m := &Mailer{
		usr:  usr,
		pwd:  pwd,
		srv:  srv,
		port: port,
		tgts: tgts,
	}
	m.send = m.dialAndSend
	return m
}

func splitTargets(v string) []string {
	var tgts []string
	for _, tgt := range strings.Split(v, ",") {
		tgt = strings.TrimSpace(tgt)
		if tgt == "" {
			continue
		}
		tgts = append(tgts, tgt)
	}
	return tgts
}

// Enabled returns whether the mailer has recipients.
func (m *Mailer) Enabled() bool {
	return m != nil && len(m.tgts) > 0
}

// Alert sends a mail with the provided subject and body.
// Alert is a no-op when no recipient is configured.
func (m *Mailer) Alert(subject, body string) error {
	if !m.Enabled() {
		return nil
	}

	if m.usr == "" || m.srv == "" || m.port == 0 {
		return fmt.Errorf("alert: could not send mail alert: missing credentials")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.usr)
	msg.SetHeader("Bcc", m.tgts...)
	msg.SetHeader("Subject", "[eeprom] "+subject)
	msg.SetBody("text/plain", body)

	err := m.send(msg)
	if err != nil {
		return fmt.Errorf("alert: could not send mail alert: %w", err)
	}
	return nil
}

func (m *Mailer) dialAndSend(msg *mail.Message) error {
	dial := mail.NewDialer(m.srv, m.port, m.usr, m.pwd)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	return dial.DialAndSend(msg)
}
