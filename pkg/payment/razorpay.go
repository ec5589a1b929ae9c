package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Gateway is the payment provider contract used by the investment flow.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

type razorpayClient struct {
	cfg        Config
	httpClient *http.Client
}

func NewRazorpayClient(cfg Config) Gateway {
	return &razorpayClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *razorpayClient) KeyID() string {
	return c.cfg.KeyID
}

func (c *razorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read order response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("create order: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("create order: empty order id")
	}
	return &order, nil
}

// VerifySignature checks hex(HMAC-SHA256(orderID|paymentID, secret)).
func (c *razorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	expected := Sign(c.cfg.KeySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ToMinorUnits converts a major-unit amount to the provider's integer unit,
// truncating any fraction below one minor unit.
func ToMinorUnits(amount float64) int64 {
	return int64(amount * 100)
}

// Receipt builds receipt_{project}_{user}_{8 hex chars}.
func Receipt(projectID, userID uuid.UUID) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("receipt_%s_%s_%s", projectID, userID, suffix)
}
