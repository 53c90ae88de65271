package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cardmachinequote/quote-engine/internal/domain"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   string // quotes inbox
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP mails every notification to the quotes inbox with the statement attached.
type SMTP struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.From == "" {
		cfg.From = fmt.Sprintf("CardMachineQuote.com <%s>", cfg.User)
	}
	s := &SMTP{cfg: cfg, now: time.Now}
	s.send = smtp.SendMail
	if cfg.Port == 465 {
		s.send = s.sendImplicitTLS
	}
	return s
}

func (s *SMTP) Notify(ctx context.Context, n domain.Notification) error {
	subject, body, err := Render(n)
	if err != nil {
		return err
	}
	msg, err := s.buildMessage(subject, body, n.Attachment)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}
	if err := s.send(addr, auth, envelopeAddress(s.cfg.From), []string{s.cfg.To}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", addr, err)
	}

	log.Ctx(ctx).Info().
		Str("kind", string(n.Kind)).
		Str("analysis_id", n.Result.AnalysisID).
		Str("to", s.cfg.To).
		Msg("notification mailed")
	return nil
}

func (s *SMTP) buildMessage(subject, htmlBody string, att *domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", s.cfg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s@quote-engine>\r\n", uuid.NewString())
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", w.Boundary())

	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(part, []byte(htmlBody)); err != nil {
		return nil, err
	}

	if att != nil && len(att.Data) > 0 {
		name := att.Name
		if name == "" {
			name = "statement"
		}
		ct := att.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {ct},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, att.Data); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 wraps encoded lines at 76 characters.
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := w.Write([]byte(enc[:76] + "\r\n")); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := w.Write([]byte(enc + "\r\n"))
	return err
}

func (s *SMTP) sendImplicitTLS(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if a != nil {
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// envelopeAddress turns "Name <a@b>" into "a@b" for MAIL FROM.
func envelopeAddress(from string) string {
	if a, err := mail.ParseAddress(from); err == nil {
		return a.Address
	}
	return from
}
