package mail

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"AINewsletter/internal/domain"
	"AINewsletter/internal/newsletter"
)

// BuildMessage renders the newsletter into a multipart/alternative message
// carrying a plain-text and an HTML part.
func BuildMessage(from string, n domain.Newsletter) ([]byte, error) {
	html, err := newsletter.Render(n)
	if err != nil {
		return nil, err
	}
	text, err := newsletter.PlainText(html)
	if err != nil {
		return nil, err
	}

	date := n.GeneratedAt
	if date.IsZero() {
		date = time.Now()
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	var header bytes.Buffer
	sender := netmail.Address{Name: n.SenderName, Address: from}
	fmt.Fprintf(&header, "From: %s\r\n", sender.String())
	fmt.Fprintf(&header, "To: %s\r\n", n.Recipient)
	fmt.Fprintf(&header, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", n.Subject))
	fmt.Fprintf(&header, "Date: %s\r\n", date.Format(time.RFC1123Z))
	fmt.Fprintf(&header, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domainOf(from))
	header.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&header, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	if err := writePart(mw, "text/plain; charset=utf-8", text); err != nil {
		return nil, err
	}
	if err := writePart(mw, "text/html; charset=utf-8", html); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	return append(header.Bytes(), body.Bytes()...), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return qp.Close()
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}
