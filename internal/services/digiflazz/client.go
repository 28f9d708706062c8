package digiflazz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const maxBodyBytes = 32 << 20

var tracer = otel.Tracer("topup/digiflazz")

type Credentials struct {
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
}

func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.APIKey) != ""
}

// SKU is one row of the upstream price list. The active flags are pointers
// so a missing field can be told apart from false.
type SKU struct {
	ProductName         string `json:"product_name"`
	Category            string `json:"category"`
	Brand               string `json:"brand"`
	Type                string `json:"type"`
	SellerName          string `json:"seller_name"`
	Price               Money  `json:"price"`
	BuyerSKUCode        string `json:"buyer_sku_code"`
	BuyerProductStatus  *bool  `json:"buyer_product_status"`
	SellerProductStatus *bool  `json:"seller_product_status"`
	UnlimitedStock      bool   `json:"unlimited_stock"`
	Stock               int64  `json:"stock"`
	Multi               bool   `json:"multi"`
	StartCutOff         string `json:"start_cut_off"`
	EndCutOff           string `json:"end_cut_off"`
	Desc                string `json:"desc"`
}

// Active reports whether both status flags are present and true.
func (s SKU) Active() bool {
	return s.BuyerProductStatus != nil && *s.BuyerProductStatus &&
		s.SellerProductStatus != nil && *s.SellerProductStatus
}

// Money is a rupiah amount. Some accounts return prices as strings.
type Money int64

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*m = Money(i)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q", s)
	}
	*m = Money(int64(f + 0.5))
	return nil
}

type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

type priceListRequest struct {
	Cmd      string `json:"cmd"`
	Username string `json:"username"`
	Sign     string `json:"sign"`
}

// FetchPriceList downloads the prepaid price list. It does not persist
// anything; callers decide what to do with stale data on failure.
func (c *Client) FetchPriceList(ctx context.Context, creds Credentials) ([]SKU, error) {
	if !creds.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, span := tracer.Start(ctx, "digiflazz.price_list", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	skus, err := c.fetch(ctx, creds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("digiflazz.sku_count", len(skus)))
	return skus, nil
}

func (c *Client) fetch(ctx context.Context, creds Credentials) ([]SKU, error) {
	body, _ := json.Marshal(priceListRequest{
		Cmd:      CmdPriceList,
		Username: creds.Username,
		Sign:     Sign(creds.Username, creds.APIKey, CmdPriceList),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/price-list", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRemote, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: http %d %s", ErrRemote, resp.StatusCode, snippet(raw))
	}

	return decodePriceList(raw)
}

// decodePriceList accepts the envelope layouts the API has used over time:
// {data:{products:[]}}, {products:[]}, {data:[]} and a bare array.
func decodePriceList(raw []byte) ([]SKU, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrUnrecognizedShape
	}

	var list json.RawMessage
	switch raw[0] {
	case '[':
		list = raw
	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal(raw, &top); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
		}
		if err := checkRC(top); err != nil {
			return nil, err
		}

		data := top["data"]
		var inner map[string]json.RawMessage
		if isObject(data) {
			if err := json.Unmarshal(data, &inner); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
			}
			if err := checkRC(inner); err != nil {
				return nil, err
			}
		}

		switch {
		case isArray(inner["products"]):
			list = inner["products"]
		case isArray(top["products"]):
			list = top["products"]
		case isArray(data):
			list = data
		default:
			return nil, ErrUnrecognizedShape
		}
	default:
		return nil, ErrUnrecognizedShape
	}

	var skus []SKU
	if err := json.Unmarshal(list, &skus); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
	}
	if len(skus) == 0 {
		return nil, ErrEmptyCatalog
	}
	return skus, nil
}

func checkRC(obj map[string]json.RawMessage) error {
	rawRC, ok := obj["rc"]
	if !ok {
		return nil
	}
	rc := scalarString(rawRC)
	if rc == "" || rc == "00" {
		return nil
	}
	return &ProtocolError{Code: rc, Message: scalarString(obj["message"])}
}

func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func isObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
