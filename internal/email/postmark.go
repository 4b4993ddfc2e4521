package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint; used by tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendPurchaseConfirmation emails the buyer after a completed purchase.
func (c *Client) SendPurchaseConfirmation(ctx context.Context, toEmail, fileTitle, creatorName string, amountCents int64, contentURL string) error {
	price := fmt.Sprintf("$%.2f", float64(amountCents)/100)
	subject := "Purchase Confirmation - PayView"
	htmlBody := fmt.Sprintf(
		`<h2>Thank you for your purchase!</h2><p>You have successfully purchased <strong>%s</strong> from %s.</p><p><strong>Amount paid:</strong> %s</p><p><strong>Access your content:</strong> <a href="%s">Click here</a></p>`,
		fileTitle, creatorName, price, contentURL,
	)
	textBody := fmt.Sprintf(
		"Thank you for your purchase!\n\nYou have successfully purchased %s from %s.\nAmount paid: %s\nAccess your content: %s\n",
		fileTitle, creatorName, price, contentURL,
	)
	return c.send(ctx, toEmail, subject, htmlBody, textBody)
}

// SendSaleNotification emails the seller after a completed sale. Earnings are
// supplied by the caller so the fee split is computed in exactly one place.
func (c *Client) SendSaleNotification(ctx context.Context, toEmail, fileTitle, buyerEmail string, amountCents, earningsCents int64) error {
	price := fmt.Sprintf("$%.2f", float64(amountCents)/100)
	earnings := fmt.Sprintf("$%.2f", float64(earningsCents)/100)
	subject := "New Sale Notification - PayView"
	htmlBody := fmt.Sprintf(
		`<h2>Congratulations! You made a sale!</h2><p><strong>%s</strong> was purchased by %s.</p><p><strong>Sale amount:</strong> %s</p><p><strong>Your earnings:</strong> %s</p><p>The funds will be transferred to your connected account according to your payout schedule.</p>`,
		fileTitle, buyerEmail, price, earnings,
	)
	textBody := fmt.Sprintf(
		"Congratulations! You made a sale!\n\n%s was purchased by %s.\nSale amount: %s\nYour earnings: %s\n",
		fileTitle, buyerEmail, price, earnings,
	)
	return c.send(ctx, toEmail, subject, htmlBody, textBody)
}

// send posts to the Postmark API, retrying transport errors and 5xx with
// capped backoff. 4xx responses are permanent and returned immediately.
func (c *Client) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Postmark-Server-Token", c.serverToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("send email: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("postmark API error: status %d", resp.StatusCode))
		case resp.StatusCode >= 400:
			return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
		}
		return nil
	})
}
