package autopost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// BCConfig holds the Business Central API connection settings.
type BCConfig struct {
	BaseURL   string `toml:"base_url"`
	CompanyID string `toml:"company_id"`
	Token     string `toml:"token"`
	Timeout   string `toml:"timeout"`
}

// BCEnv maps BCConfig fields to environment variable names for override
// injection.
type BCEnv struct {
	BaseURL   string
	CompanyID string
	Token     string
	Timeout   string
}

// Configured reports whether a Business Central endpoint is set. When it is
// not, composition falls back to a poster that fails every write, which in
// pilot mode is never reached.
func (c *BCConfig) Configured() bool {
	return c.BaseURL != ""
}

// Finalize applies environment variable overrides and validation. A missing
// endpoint is valid; Configured gates usage.
func (c *BCConfig) Finalize(env *BCEnv) error {
	if env != nil {
		c.loadEnv(env)
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}
	if c.Configured() && c.CompanyID == "" {
		return fmt.Errorf("company_id required when base_url is set")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *BCConfig) Merge(overlay *BCConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.CompanyID != "" {
		c.CompanyID = overlay.CompanyID
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *BCConfig) loadEnv(env *BCEnv) {
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.CompanyID != "" {
		if v := os.Getenv(env.CompanyID); v != "" {
			c.CompanyID = v
		}
	}
	if env.Token != "" {
		if v := os.Getenv(env.Token); v != "" {
			c.Token = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *BCConfig) timeout() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// Unconfigured is the Poster used when no Business Central endpoint is
// configured. Every write fails with a stable message; in pilot deployments
// the simulated path means it is never invoked.
type Unconfigured struct{}

func (Unconfigured) CreatePurchaseInvoice(context.Context, InvoiceData) (*PostResult, error) {
	return &PostResult{Success: false, Error: "accounting system not configured"}, nil
}

func (Unconfigured) UpdatePurchaseInvoiceLink(context.Context, string, string, string, string) error {
	return fmt.Errorf("accounting system not configured")
}

func (Unconfigured) GetPurchaseInvoice(context.Context, string) (*PostResult, error) {
	return nil, fmt.Errorf("accounting system not configured")
}

// BCClient posts purchase invoices to the Business Central API.
type BCClient struct {
	cfg    BCConfig
	client *http.Client
	logger *slog.Logger
}

// NewBCClient creates a Business Central poster.
func NewBCClient(cfg BCConfig, logger *slog.Logger) *BCClient {
	return &BCClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.timeout()},
		logger: logger.With("system", "bc"),
	}
}

type bcInvoiceRequest struct {
	VendorNumber        string `json:"vendorNumber"`
	VendorInvoiceNumber string `json:"vendorInvoiceNumber"`
	InvoiceDate         string `json:"invoiceDate"`
	Amount              string `json:"totalAmountIncludingTax"`
	PONumber            string `json:"purchaseOrderNumber,omitempty"`
	DueDate             string `json:"dueDate,omitempty"`
	LocationCode        string `json:"shipToCode,omitempty"`
}

type bcInvoiceResponse struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
}

type bcError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePurchaseInvoice submits a draft purchase invoice. A non-2xx response
// produces a failed PostResult carrying the API's error message verbatim so
// the stored posting error matches what Business Central reported.
func (c *BCClient) CreatePurchaseInvoice(ctx context.Context, data InvoiceData) (*PostResult, error) {
	body := bcInvoiceRequest{
		VendorNumber:        data.VendorBCID,
		VendorInvoiceNumber: data.InvoiceNumber,
		InvoiceDate:         data.InvoiceDate,
		Amount:              data.Amount,
		PONumber:            data.PONumber,
		DueDate:             data.DueDate,
		LocationCode:        data.LocationCode,
	}

	var created bcInvoiceResponse
	if err := c.send(ctx, http.MethodPost, c.invoicesURL(), body, &created); err != nil {
		return &PostResult{Success: false, Error: err.Error()}, nil
	}

	return &PostResult{
		Success:          true,
		BCDocumentID:     created.ID,
		BCDocumentNumber: created.Number,
	}, nil
}

// UpdatePurchaseInvoiceLink attaches the stored document URL to the posted
// invoice. Failures are returned for the caller to log; a successful post
// stands regardless.
func (c *BCClient) UpdatePurchaseInvoiceLink(
	ctx context.Context,
	bcDocumentID, url, documentNo, uploadedBy string,
) error {
	body := map[string]string{
		"factorDocumentURL": url,
		"factorDocumentNo":  documentNo,
		"factorUploadedBy":  uploadedBy,
	}
	target := fmt.Sprintf("%s(%s)", c.invoicesURL(), bcDocumentID)
	return c.send(ctx, http.MethodPatch, target, body, nil)
}

// GetPurchaseInvoice looks up a posted invoice by its Business Central id.
func (c *BCClient) GetPurchaseInvoice(ctx context.Context, bcDocumentID string) (*PostResult, error) {
	var found bcInvoiceResponse
	target := fmt.Sprintf("%s(%s)", c.invoicesURL(), bcDocumentID)
	if err := c.send(ctx, http.MethodGet, target, nil, &found); err != nil {
		return nil, err
	}
	return &PostResult{
		Success:          true,
		BCDocumentID:     found.ID,
		BCDocumentNumber: found.Number,
	}, nil
}

func (c *BCClient) invoicesURL() string {
	return fmt.Sprintf("%s/companies(%s)/purchaseInvoices", c.cfg.BaseURL, c.cfg.CompanyID)
}

func (c *BCClient) send(ctx context.Context, method, url string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if method == http.MethodPatch {
		req.Header.Set("If-Match", "*")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr bcError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%s: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
