// Package mailer sends order notifications through the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/ovenworks/breadstore/internal/domain/order"
	"github.com/ovenworks/breadstore/internal/domain/payment"
)

const defaultEndpoint = "https://api.resend.com/emails"

// Config holds mailer settings. An empty APIKey disables sending entirely.
type Config struct {
	APIKey string
	// From is the sender address, e.g. "orders@resend.dev".
	From string
	// MerchantEmail receives the new-order notification. Optional.
	MerchantEmail string
}

// Client sends receipt and merchant notification emails. The zero value and
// a nil *Client are no-ops, so callers never need to branch on whether email
// is configured.
type Client struct {
	cfg      Config
	client   *http.Client
	endpoint string
}

// New builds a Client. Returns nil when no API key is configured; a nil
// Client is safe to use and sends nothing.
func New(cfg Config, client *http.Client) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.From == "" {
		cfg.From = "orders@resend.dev"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg, client: client, endpoint: defaultEndpoint}
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<h2>Thank you for your order!</h2>
<p>Order ID: <strong>{{.ID}}</strong></p>
<p><strong>Items:</strong></p>
<pre>{{.ItemsList}}</pre>
<p>Total: ${{.Total}} USD</p>
<p>Payment: {{.PaymentMethod}} &mdash; {{.PaymentAmount}}</p>
{{if .TxURL}}<p>Tx: <a href="{{.TxURL}}">{{.TxHash}}</a></p>{{end}}
<p>Order prep starts in the next 24hrs, ships within 24hrs after cooling.</p>`))

var notifyTmpl = template.Must(template.New("notify").Parse(`<h2>New order #{{.ID}}</h2>
<p>{{.CustomerName}} &lt;{{.Email}}&gt;</p>
<p>{{.Address}}, {{.City}}, {{.State}} {{.Zip}}</p>
<p><strong>Items:</strong></p>
<pre>{{.ItemsList}}</pre>
<p>Total: ${{.Total}} | {{.PaymentMethod}} | {{.PaymentAmount}}</p>
{{if .TxHash}}<p>Tx: {{.TxHash}}</p>{{end}}`))

type mailData struct {
	ID            string
	CustomerName  string
	Email         string
	Address       string
	City          string
	State         string
	Zip           string
	ItemsList     string
	Total         string
	PaymentMethod string
	PaymentAmount string
	TxHash        string
	TxURL         string
}

// ExplorerTxURL returns the block explorer link for a transaction on the
// given chain.
func ExplorerTxURL(chain payment.Chain, txHash string) string {
	if txHash == "" {
		return ""
	}
	if chain == payment.ChainBase {
		return "https://basescan.org/tx/" + txHash
	}
	return "https://etherscan.io/tx/" + txHash
}

func buildMailData(o *order.Order) mailData {
	var items strings.Builder
	for i, it := range o.Items {
		if i > 0 {
			items.WriteByte('\n')
		}
		items.WriteString("- " + it.Product + " x" + strconv.Itoa(it.Qty) + " @ $" + it.Price.StringFixed(2))
	}
	amount := o.PaymentAmount
	if amount == "" {
		amount = "—"
	}
	return mailData{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		Email:         o.Email,
		Address:       o.Address,
		City:          o.City,
		State:         o.State,
		Zip:           o.Zip,
		ItemsList:     items.String(),
		Total:         o.TotalUSD.StringFixed(2),
		PaymentMethod: o.PaymentMethod,
		PaymentAmount: amount,
		TxHash:        o.TxHash,
		TxURL:         ExplorerTxURL(o.PaymentChain, o.TxHash),
	}
}

// SendOrderEmails sends the customer receipt and, when a merchant address is
// configured, the merchant notification. Implements order.Mailer.
func (c *Client) SendOrderEmails(ctx context.Context, o *order.Order) error {
	if c == nil {
		return nil
	}
	data := buildMailData(o)

	var receipt bytes.Buffer
	if err := receiptTmpl.Execute(&receipt, data); err != nil {
		return errors.Wrap(err, "render receipt")
	}
	if err := c.send(ctx, o.Email, "Order #"+o.ID+" — $BREAD Store", receipt.String()); err != nil {
		return errors.Wrap(err, "send receipt")
	}

	if c.cfg.MerchantEmail != "" {
		var notify bytes.Buffer
		if err := notifyTmpl.Execute(&notify, data); err != nil {
			return errors.Wrap(err, "render notification")
		}
		if err := c.send(ctx, c.cfg.MerchantEmail, "[New Order] #"+o.ID, notify.String()); err != nil {
			return errors.Wrap(err, "send notification")
		}
	}
	return nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *Client) send(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(sendRequest{
		From:    c.cfg.From,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("resend: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
