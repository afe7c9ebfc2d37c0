// Package notify delivers ticket confirmation emails. Delivery is best
// effort: callers log failures and never fail a committed checkout.
package notify

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

var (
	// ErrNoRecipient is returned when an order has neither a buyer email
	// nor an owning user.
	ErrNoRecipient = errors.New("no recipient for order")
	// ErrNotConfigured is returned by a mailer without SMTP settings.
	ErrNotConfigured = errors.New("smtp not configured")
)

// qrName is also referenced as cid:ticket-qr.png by the template.
const qrName = "ticket-qr.png"

//go:embed templates/ticket.html
var ticketHTML string

var ticketTmpl = template.Must(template.New("ticket").Parse(ticketHTML))

// Ticket is everything the confirmation email shows.
type Ticket struct {
	Recipient  string
	RefCode    string
	MovieTitle string
	Theater    string
	StartsAt   time.Time
	Seats      []string
	Discount   decimal.Decimal
	PromoCode  string
	Total      decimal.Decimal
}

// TicketFromOrder builds the email payload for a stored order.
func TicketFromOrder(d repository.OrderDetail) Ticket {
	t := Ticket{
		Recipient:  d.Recipient(),
		RefCode:    d.Order.RefCode,
		MovieTitle: d.Movie.Title,
		Theater:    d.Showtime.Theater,
		StartsAt:   d.Showtime.StartsAt,
		Seats:      d.SeatLabels(),
		Discount:   d.Order.DiscountAmount,
		Total:      d.Order.TotalAmount,
	}
	if d.Order.PromoCode != nil {
		t.PromoCode = *d.Order.PromoCode
	}
	return t
}

// Mailer sends ticket confirmation emails.
type Mailer interface {
	SendTicket(ctx context.Context, t Ticket) error
}

// SMTPConfig holds the transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Location *time.Location // zone used to print showtimes
}

// SMTPMailer sends through one long-lived gomail dialer.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	loc    *time.Location
}

// NewSMTPMailer returns a mailer for cfg. With no host configured every
// send fails with ErrNotConfigured.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	m := &SMTPMailer{from: cfg.From, loc: cfg.Location}
	if m.from == "" {
		m.from = cfg.Username
	}
	if m.loc == nil {
		m.loc = time.UTC
	}
	if cfg.Host != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		m.dialer.SSL = cfg.Port == 465
	}
	return m
}

// SendTicket renders and sends the confirmation for t.
func (m *SMTPMailer) SendTicket(ctx context.Context, t Ticket) error {
	if m.dialer == nil {
		return ErrNotConfigured
	}
	msg, err := m.Build(t)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrap(m.dialer.DialAndSend(msg), "send ticket email")
}

// Build renders t into a message with the QR code embedded inline.
func (m *SMTPMailer) Build(t Ticket) (*gomail.Message, error) {
	if strings.TrimSpace(t.Recipient) == "" {
		return nil, ErrNoRecipient
	}
	png, err := QRCode(t.RefCode)
	if err != nil {
		return nil, err
	}
	body, err := m.renderHTML(t)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", t.Recipient)
	msg.SetHeader("Subject", Subject(t))
	msg.SetBody("text/html", body)
	msg.Embed(qrName, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(png)
		return err
	}))
	return msg, nil
}

// Subject is the email subject line for t.
func Subject(t Ticket) string {
	return "Your Tickets: " + t.MovieTitle + " - " + t.RefCode
}

// QRCode renders the counter QR code for a reference code as PNG.
func QRCode(refCode string) ([]byte, error) {
	png, err := qrcode.Encode("TICKET:"+refCode, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Wrap(err, "encode qr code")
	}
	return png, nil
}

func (m *SMTPMailer) renderHTML(t Ticket) (string, error) {
	data := struct {
		RefCode    string
		MovieTitle string
		Theater    string
		StartsAt   string
		Seats      string
		Discount   string
		PromoCode  string
		Total      string
	}{
		RefCode:    t.RefCode,
		MovieTitle: t.MovieTitle,
		Theater:    t.Theater,
		StartsAt:   t.StartsAt.In(m.loc).Format("Mon 2 Jan 2006 15:04"),
		Seats:      strings.Join(t.Seats, ", "),
		PromoCode:  t.PromoCode,
		Total:      t.Total.StringFixed(2),
	}
	if t.Discount.IsPositive() {
		data.Discount = t.Discount.StringFixed(2)
	}
	var buf bytes.Buffer
	if err := ticketTmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "render ticket email")
	}
	return buf.String(), nil
}
