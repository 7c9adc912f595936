package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjannette/trahn-wallet/internal/httputil"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const DefaultTickerBaseURL = "https://api.binance.com"

// TickerClient quotes USD rates from a Binance-style
// GET /api/v3/ticker/price?symbol=X endpoint. One request per call, no cache.
type TickerClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTickerClient(baseURL string) *TickerClient {
	if baseURL == "" {
		baseURL = DefaultTickerBaseURL
	}
	return &TickerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Price returns the last traded price for ticker, e.g. "ETHUSDT".
func (c *TickerClient) Price(ctx context.Context, ticker string) (decimal.Decimal, error) {
	endpoint := c.baseURL + "/api/v3/ticker/price?symbol=" + url.QueryEscape(ticker)

	var data tickerPrice
	if err := httputil.GetJSON(ctx, c.httpClient, endpoint, &data); err != nil {
		return decimal.Zero, &OracleError{Ticker: ticker, Err: describe(err)}
	}
	if !strings.EqualFold(data.Symbol, ticker) {
		return decimal.Zero, &OracleError{Ticker: ticker, Err: fmt.Errorf("malformed payload: quote is for %q", data.Symbol)}
	}
	if data.Price == "" {
		return decimal.Zero, &OracleError{Ticker: ticker, Err: errors.New("response has no price")}
	}
	price, err := decimal.NewFromString(data.Price)
	if err != nil {
		return decimal.Zero, &OracleError{Ticker: ticker, Err: fmt.Errorf("parse price %q: %w", data.Price, err)}
	}
	if price.IsNegative() {
		return decimal.Zero, &OracleError{Ticker: ticker, Err: fmt.Errorf("negative price %s", price)}
	}

	log.Debug().Str("ticker", ticker).Str("price", price.String()).Msg("Quote received")
	return price, nil
}

// describe surfaces the exchange's own message for rejected symbols.
func describe(err error) error {
	var statusErr *httputil.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	var body struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if json.Unmarshal([]byte(statusErr.Body), &body) == nil && body.Msg != "" {
		return fmt.Errorf("HTTP %d: %s (code %d): %w", statusErr.StatusCode, body.Msg, body.Code, statusErr)
	}
	return err
}
