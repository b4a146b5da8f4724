// internal/api/binance_client.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nastiakostenyuk/alert-server-v1/internal/config"
)

// BinanceClient - клиент публичного REST API Binance Futures
type BinanceClient struct {
	httpClient *http.Client
	baseURL    string
}

// ExchangeInfoResponse - ответ /fapi/v1/exchangeInfo
type ExchangeInfoResponse struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		ContractType string `json:"contractType"`
		Status       string `json:"status"`
	} `json:"symbols"`
}

// TickerResponse - ответ /fapi/v1/ticker/24hr по одному символу
type TickerResponse struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

// NewBinanceClient создает новый REST-клиент Binance Futures
func NewBinanceClient(cfg *config.Config) *BinanceClient {
	return &BinanceClient{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL: cfg.ApiURL,
	}
}

// sendPublicRequest отправляет публичный GET-запрос к API
func (c *BinanceClient) sendPublicRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	apiURL := c.baseURL + endpoint
	if len(params) > 0 {
		apiURL = apiURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s: status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	return body, nil
}

// PerpetualSymbols возвращает торгуемые бессрочные USDT-контракты
func (c *BinanceClient) PerpetualSymbols(ctx context.Context) ([]string, error) {
	body, err := c.sendPublicRequest(ctx, "/fapi/v1/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}

	var info ExchangeInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse exchange info: %w", err)
	}

	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if strings.HasSuffix(s.Symbol, "USDT") && s.ContractType == "PERPETUAL" && s.Status == "TRADING" {
			symbols = append(symbols, strings.ToUpper(s.Symbol))
		}
	}

	return symbols, nil
}

// DailyQuoteVolume возвращает суточный объём торгов символа в долларах
func (c *BinanceClient) DailyQuoteVolume(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.sendPublicRequest(ctx, "/fapi/v1/ticker/24hr", params)
	if err != nil {
		return 0, err
	}

	var ticker TickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("parse ticker: %w", err)
	}

	volume, err := strconv.ParseFloat(ticker.QuoteVolume, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quote volume %q: %w", ticker.QuoteVolume, err)
	}

	return volume, nil
}
