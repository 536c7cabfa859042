package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var ErrAPI = errors.New("paypal api error")

// Client talks to the PayPal REST v2 Orders API with client-credentials auth.
// Tokens are cached until shortly before they expire.
type Client struct {
	BaseURL  string
	ClientID string
	Secret   string
	Timeout  time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

var _ API = (*Client)(nil)

func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ClientID: clientID,
		Secret:   secret,
		Timeout:  15 * time.Second,
		now:      time.Now,
	}
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Desc    string `json:"error_description"`
}

func (c *Client) send(a *fiber.Agent, out any) error {
	if c.Timeout > 0 {
		a.Timeout(c.Timeout)
	}
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code < 200 || code > 299 {
		var e apiError
		_ = json.Unmarshal(body, &e)
		msg := e.Name + " " + e.Message
		if e.Error != "" {
			msg = e.Error + " " + e.Desc
		}
		return fmt.Errorf("%w: status %d: %s", ErrAPI, code, strings.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	const op = "payment.Client.accessToken"
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	a := fiber.Post(c.BaseURL+"/v1/oauth2/token").
		BasicAuth(c.ClientID, c.Secret).
		ContentType(fiber.MIMEApplicationForm).
		BodyString("grant_type=client_credentials")
	if err := c.send(a, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%s: %w: empty access token", op, ErrAPI)
	}
	c.token = resp.AccessToken
	c.expires = c.now().Add(time.Duration(resp.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

// CreateOrder creates a CAPTURE-intent order and returns its id.
func (c *Client) CreateOrder(ctx context.Context, unit PurchaseUnit) (string, error) {
	const op = "payment.Client.CreateOrder"
	tok, err := c.accessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	body := map[string]any{
		"intent":         "CAPTURE",
		"purchase_units": []PurchaseUnit{unit},
	}
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	a := fiber.Post(c.BaseURL+"/v2/checkout/orders").
		Set(fiber.HeaderAuthorization, "Bearer "+tok).
		Set("PayPal-Request-Id", uuid.NewString()).
		JSON(body)
	if err := c.send(a, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%s: %w: missing order id", op, ErrAPI)
	}
	return resp.ID, nil
}

// CaptureOrder captures payment for an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (Capture, error) {
	const op = "payment.Client.CaptureOrder"
	tok, err := c.accessToken(ctx)
	if err != nil {
		return Capture{}, fmt.Errorf("%s: %w", op, err)
	}
	var resp struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	a := fiber.Post(c.BaseURL+"/v2/checkout/orders/"+orderID+"/capture").
		Set(fiber.HeaderAuthorization, "Bearer "+tok).
		ContentType(fiber.MIMEApplicationJSON).
		BodyString("{}")
	if err := c.send(a, &resp); err != nil {
		return Capture{}, fmt.Errorf("%s: %w", op, err)
	}
	out := Capture{OrderID: resp.ID, Status: resp.Status}
	if len(resp.PurchaseUnits) > 0 && len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		out.CaptureID = resp.PurchaseUnits[0].Payments.Captures[0].ID
	}
	return out, nil
}

// Clients hands out one Client per PayPal client id so cached tokens are
// reused across requests. With no secret configured it hands out nothing.
type Clients struct {
	baseURL string
	secret  string

	mu sync.Mutex
	m  map[string]*Client
}

func NewClients(baseURL, secret string) *Clients {
	return &Clients{baseURL: baseURL, secret: secret, m: map[string]*Client{}}
}

// For returns the API for clientID, or nil when PayPal cannot be reached.
func (p *Clients) For(clientID string) API {
	if p == nil || p.secret == "" || clientID == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.m[clientID]
	if !ok {
		c = NewClient(p.baseURL, clientID, p.secret)
		p.m[clientID] = c
	}
	return c
}
