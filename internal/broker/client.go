// Package broker implements the Broker Client (C1): OAuth-style token
// lifecycle, request pacing, quote/order/balance calls for both
// domestic (KRX) and overseas symbols, and the error-kind mapping
// described in spec.md §4.1 and §7.
package broker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/kis-autotrader/internal/apperrors"
	"github.com/aristath/kis-autotrader/internal/domain"
)

const (
	basURLProd = "https://openapi.koreainvestment.com:9443"
	baseURLMock = "https://openapivts.koreainvestment.com:29443"

	trIDToken = "oauth2/tokenP"
	trIDPrice = "FHKST01010100"
	trIDOverseasPrice = "HHDFS00000300"

	ordDvsnMarket = "01"
	ordDvsnLimit  = "00"

	minRequestInterval = 60 * time.Millisecond
	defaultTimeout      = 10 * time.Second
	tokenRefreshWindow  = 5 * time.Minute
)

// tr_id tables: index 0 mock, index 1 prod.
var (
	trIDBuy           = [2]string{"VTTC0802U", "TTTC0802U"}
	trIDSell          = [2]string{"VTTC0801U", "TTTC0801U"}
	trIDBalance       = [2]string{"VTTC8434R", "TTTC8434R"}
	trIDOverseasBuy     = [2]string{"VTTT1002U", "JTTT1002U"}
	trIDOverseasBalance = [2]string{"VTTS3012R", "TTTS3012R"}
)

var validExchangeCodes = map[string]bool{"NASD": true, "NYSE": true, "AMEX": true}

// Config configures a Client.
type Config struct {
	AppKey     string
	AppSecret  string
	AccountNo  string // "CANO-ACNT_PRDT_CD", e.g. "12345678-01"
	Mock       bool
	Timeout    time.Duration
}

// Client is a paced, token-refreshing REST client for the broker API.
type Client struct {
	appKey    string
	appSecret string
	cano      string
	acntPrdtCd string
	mock      bool
	baseURL   string

	httpClient *http.Client
	log        zerolog.Logger

	mu                sync.Mutex
	accessToken       string
	tokenExpiredAt    time.Time
	lastRequestInstant time.Time
}

// New validates Config and constructs a Client.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" {
		return nil, apperrors.NewValidation("app key and app secret are required", nil)
	}
	parts := strings.SplitN(cfg.AccountNo, "-", 2)
	if len(parts) != 2 {
		return nil, apperrors.NewValidation("account number must be formatted XXXXXXXX-XX", map[string]interface{}{"account_no": cfg.AccountNo})
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	baseURL := baseURLMock
	if !cfg.Mock {
		baseURL = basURLProd
	}

	return &Client{
		appKey:     cfg.AppKey,
		appSecret:  cfg.AppSecret,
		cano:       parts[0],
		acntPrdtCd: parts[1],
		mock:       cfg.Mock,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "broker").Logger(),
	}, nil
}

// ─────────────────────── Authentication ───────────────────────

func (c *Client) accessTokenValid() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiredAt.Add(-tokenRefreshWindow)) {
		return c.accessToken
	}
	return ""
}

// token returns a valid access token, issuing or refreshing one under
// the client's single mutex so concurrent refreshers coalesce into
// one network call.
func (c *Client) token() (string, error) {
	if tok := c.accessTokenValid(); tok != "" {
		return tok, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check: another goroutine may have refreshed while we waited.
	if c.accessToken != "" && time.Now().Before(c.tokenExpiredAt.Add(-tokenRefreshWindow)) {
		return c.accessToken, nil
	}

	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.appKey,
		"appsecret":  c.appSecret,
	}
	buf, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, c.baseURL+"/oauth2/tokenP", bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewBroker("token request network error", map[string]interface{}{"error": err.Error()})
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", apperrors.NewBrokerAuth("token issuance failed", map[string]interface{}{"status": resp.StatusCode, "body": string(data)})
	}

	var parsed struct {
		AccessToken      string `json:"access_token"`
		TokenExpiredAt   string `json:"access_token_token_expired"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", apperrors.NewBroker("token response parse error", map[string]interface{}{"error": err.Error()})
	}

	c.accessToken = parsed.AccessToken
	if parsed.TokenExpiredAt != "" {
		if t, err := time.Parse("2006-01-02 15:04:05", parsed.TokenExpiredAt); err == nil {
			c.tokenExpiredAt = t
		} else {
			c.tokenExpiredAt = time.Now().Add(24 * time.Hour)
		}
	} else {
		c.tokenExpiredAt = time.Now().Add(24 * time.Hour)
	}

	c.log.Info().Time("expires_at", c.tokenExpiredAt).Msg("broker access token issued")
	return c.accessToken, nil
}

func (c *Client) clearToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

// ─────────────────────── Pacing ───────────────────────

// pace blocks until at least minRequestInterval has elapsed since the
// previous request, using the monotonic clock. It never busy-waits.
func (c *Client) pace() {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequestInstant)
	var wait time.Duration
	if elapsed < minRequestInterval {
		wait = minRequestInterval - elapsed
	}
	c.lastRequestInstant = time.Now().Add(wait)
	c.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
}

// ─────────────────────── Hashkey ───────────────────────

func (c *Client) hashkey(body map[string]interface{}) (string, error) {
	buf, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, c.baseURL+"/uapi/hashkey", bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("appkey", c.appKey)
	req.Header.Set("appsecret", c.appSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewBroker("hashkey request failed", map[string]interface{}{"error": err.Error()})
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	var parsed struct {
		Hash string `json:"HASH"`
	}
	_ = json.Unmarshal(data, &parsed)
	return parsed.Hash, nil
}

// ─────────────────────── Common request plumbing ───────────────────────

func (c *Client) headers(trID string) (http.Header, error) {
	tok, err := c.token()
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("authorization", "Bearer "+tok)
	h.Set("appkey", c.appKey)
	h.Set("appsecret", c.appSecret)
	h.Set("tr_id", trID)
	h.Set("custtype", "P")
	return h, nil
}

// doWithRetry executes fn once, and if it fails with a BrokerAuth
// error (401, token cleared by the handler below), retries exactly
// once after the cleared token forces a fresh issuance.
func (c *Client) doWithRetry(fn func() (*http.Response, error)) (*http.Response, error) {
	resp, err := fn()
	if ae, ok := err.(*apperrors.AppError); ok && ae.Code == "BROKER_AUTH_ERROR" {
		c.clearToken()
		return fn()
	}
	return resp, err
}

func (c *Client) get(path, trID string, params map[string]string) (map[string]interface{}, error) {
	var result map[string]interface{}
	_, err := c.doWithRetry(func() (*http.Response, error) {
		c.pace()
		h, err := c.headers(trID)
		if err != nil {
			return nil, err
		}
		req, _ := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
		req.Header = h
		q := req.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, apperrors.NewBroker("request network error", map[string]interface{}{"path": path, "error": err.Error()})
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if handled := c.handleStatus(resp.StatusCode, body); handled != nil {
			return nil, handled
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, apperrors.NewBroker("response parse error", map[string]interface{}{"path": path})
		}
		return nil, c.checkRtCd(result, path)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) post(path, trID string, body map[string]interface{}, useHashkey bool) (map[string]interface{}, error) {
	var result map[string]interface{}
	_, err := c.doWithRetry(func() (*http.Response, error) {
		c.pace()
		h, err := c.headers(trID)
		if err != nil {
			return nil, err
		}
		if useHashkey {
			hk, err := c.hashkey(body)
			if err != nil {
				return nil, err
			}
			h.Set("hashkey", hk)
		}
		buf, _ := json.Marshal(body)
		req, _ := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
		req.Header = h

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, apperrors.NewBroker("request network error", map[string]interface{}{"path": path, "error": err.Error()})
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		if handled := c.handleStatus(resp.StatusCode, respBody); handled != nil {
			return nil, handled
		}
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, apperrors.NewBroker("response parse error", map[string]interface{}{"path": path})
		}
		return nil, c.checkRtCd(result, path)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) handleStatus(status int, body []byte) error {
	if status < 300 {
		return nil
	}
	if status == http.StatusUnauthorized {
		c.clearToken()
		return apperrors.NewBrokerAuth("broker authentication failed", map[string]interface{}{"status": status, "body": string(body)})
	}
	return apperrors.NewBroker(fmt.Sprintf("broker HTTP error (%d)", status), map[string]interface{}{"status": status, "body": string(body)})
}

func (c *Client) checkRtCd(data map[string]interface{}, path string) error {
	rtCd, _ := data["rt_cd"].(string)
	if rtCd != "" && rtCd != "0" {
		msg, _ := data["msg1"].(string)
		msgCd, _ := data["msg_cd"].(string)
		return apperrors.NewBroker(fmt.Sprintf("broker API error (%s): %s", msgCd, msg), map[string]interface{}{"path": path, "rt_cd": rtCd, "msg_cd": msgCd})
	}
	return nil
}

// ─────────────────────── Quote ───────────────────────

// Quote fetches the current domestic price snapshot for a 6-digit code.
func (c *Client) Quote(code string) (domain.Quote, error) {
	if len(code) != 6 {
		return domain.Quote{}, apperrors.NewValidation("stock code must be 6 digits", map[string]interface{}{"stock_code": code})
	}
	data, err := c.get("/uapi/domestic-stock/v1/quotations/inquire-price", trIDPrice, map[string]string{
		"FID_COND_MRKT_DIV_CODE": "J",
		"FID_INPUT_ISCD":         code,
	})
	if err != nil {
		return domain.Quote{}, err
	}
	out, _ := data["output"].(map[string]interface{})
	return domain.Quote{
		Symbol:        domain.Symbol{Code: code, Kind: domain.SymbolDomestic},
		Price:         atof(out["stck_prpr"]),
		PriorClosePct: atof(out["prdy_ctrt"]),
		High:          atof(out["stck_hgpr"]),
		Low:           atof(out["stck_lwpr"]),
		PER:           atof(out["per"]),
		PBR:           atof(out["pbr"]),
	}, nil
}

// QuoteOverseas fetches the current price for a foreign ticker.
func (c *Client) QuoteOverseas(ticker, exchange string) (domain.Quote, error) {
	if ticker == "" || !isAlpha(ticker) {
		return domain.Quote{}, apperrors.NewValidation("overseas ticker must be alphabetic", map[string]interface{}{"ticker": ticker})
	}
	if !validExchangeCodes[exchange] {
		return domain.Quote{}, apperrors.NewValidation("unsupported exchange code", map[string]interface{}{"exchange_code": exchange})
	}
	data, err := c.get("/uapi/overseas-price/v1/quotations/price", trIDOverseasPrice, map[string]string{
		"AUTH": "",
		"EXCD": exchange,
		"SYMB": ticker,
	})
	if err != nil {
		return domain.Quote{}, err
	}
	out, _ := data["output"].(map[string]interface{})
	return domain.Quote{
		Symbol:        domain.Symbol{Code: ticker, Kind: domain.SymbolOverseas, Exchange: exchange},
		Price:         atof(out["last"]),
		PriorClosePct: atof(out["rate"]),
		High:          atof(out["high"]),
		Low:           atof(out["low"]),
	}, nil
}

// ─────────────────────── Orders ───────────────────────

// PlaceOrder submits a domestic cash order. A nil price is a market
// order; otherwise it is a limit order at the given price.
func (c *Client) PlaceOrder(code string, side domain.OrderSide, qty int, price *int) (domain.OrderResult, error) {
	if len(code) != 6 {
		return domain.OrderResult{}, apperrors.NewValidation("stock code must be 6 digits", map[string]interface{}{"stock_code": code})
	}
	if qty < 1 {
		return domain.OrderResult{}, apperrors.NewValidation("order quantity must be at least 1", map[string]interface{}{"quantity": qty})
	}

	var trID string
	if side == domain.OrderBuy {
		trID = trIDBuy[mockIdx(c.mock)]
	} else {
		trID = trIDSell[mockIdx(c.mock)]
	}
	ordDvsn := ordDvsnMarket
	ordUnpr := "0"
	if price != nil {
		ordDvsn = ordDvsnLimit
		ordUnpr = strconv.Itoa(*price)
	}

	body := map[string]interface{}{
		"CANO":          c.cano,
		"ACNT_PRDT_CD":  c.acntPrdtCd,
		"PDNO":          code,
		"ORD_DVSN":      ordDvsn,
		"ORD_QTY":       strconv.Itoa(qty),
		"ORD_UNPR":      ordUnpr,
	}

	ref := uuid.NewString()
	c.log.Info().Str("order_ref", ref).Str("side", string(side)).Str("code", code).Int("qty", qty).Msg("submitting order")

	data, err := c.post("/uapi/domestic-stock/v1/trading/order-cash", trID, body, true)
	if err != nil {
		if ae, ok := err.(*apperrors.AppError); ok && ae.Code == "BROKER_ERROR" {
			return domain.OrderResult{}, apperrors.NewOrder(ae.Message, ae.Detail)
		}
		return domain.OrderResult{}, err
	}
	out, _ := data["output"].(map[string]interface{})
	return domain.OrderResult{
		BrokerOrderNumber: asString(out["ODNO"]),
		Timestamp:         time.Now(),
	}, nil
}

// PlaceOverseasOrder submits a foreign buy order. Overseas orders are
// always limit orders.
func (c *Client) PlaceOverseasOrder(ticker, exchange string, qty int, price float64) (domain.OrderResult, error) {
	if ticker == "" || !isAlpha(ticker) {
		return domain.OrderResult{}, apperrors.NewValidation("overseas ticker must be alphabetic", map[string]interface{}{"ticker": ticker})
	}
	if !validExchangeCodes[exchange] {
		return domain.OrderResult{}, apperrors.NewValidation("unsupported exchange code", map[string]interface{}{"exchange_code": exchange})
	}
	if qty < 1 {
		return domain.OrderResult{}, apperrors.NewValidation("order quantity must be at least 1", map[string]interface{}{"quantity": qty})
	}
	if price <= 0 {
		return domain.OrderResult{}, apperrors.NewValidation("overseas order price must be positive", map[string]interface{}{"price": price})
	}

	trID := trIDOverseasBuy[mockIdx(c.mock)]
	body := map[string]interface{}{
		"CANO":             c.cano,
		"ACNT_PRDT_CD":     c.acntPrdtCd,
		"OVRS_EXCG_CD":     exchange,
		"PDNO":             ticker,
		"ORD_QTY":          strconv.Itoa(qty),
		"OVRS_ORD_UNPR":    fmt.Sprintf("%.2f", price),
		"ORD_SVR_DVSN_CD":  "0",
		"ORD_DVSN":         "00",
	}

	ref := uuid.NewString()
	c.log.Info().Str("order_ref", ref).Str("ticker", ticker).Int("qty", qty).Float64("price", price).Msg("submitting overseas order")

	data, err := c.post("/uapi/overseas-stock/v1/trading/order", trID, body, true)
	if err != nil {
		if ae, ok := err.(*apperrors.AppError); ok && ae.Code == "BROKER_ERROR" {
			return domain.OrderResult{}, apperrors.NewOrder(ae.Message, ae.Detail)
		}
		return domain.OrderResult{}, err
	}
	out, _ := data["output"].(map[string]interface{})
	return domain.OrderResult{
		BrokerOrderNumber: asString(out["ODNO"]),
		Timestamp:         time.Now(),
	}, nil
}

// ─────────────────────── Balance ───────────────────────

// Balance fetches the domestic account balance.
func (c *Client) Balance() (domain.Balance, error) {
	trID := trIDBalance[mockIdx(c.mock)]
	data, err := c.get("/uapi/domestic-stock/v1/trading/inquire-balance", trID, map[string]string{
		"CANO": c.cano, "ACNT_PRDT_CD": c.acntPrdtCd,
		"AFHR_FLPR_YN": "N", "OFL_YN": "", "INQR_DVSN": "02", "UNPR_DVSN": "01",
		"FUND_STTL_ICLD_YN": "N", "FNCG_AMT_AUTO_RDPT_YN": "N", "PRCS_DVSN": "01",
		"CTX_AREA_FK100": "", "CTX_AREA_NK100": "",
	})
	if err != nil {
		return domain.Balance{}, err
	}
	return parseBalance(data, domain.SymbolDomestic, ""), nil
}

// BalanceOverseas fetches the overseas account balance.
func (c *Client) BalanceOverseas() (domain.Balance, error) {
	trID := trIDOverseasBalance[mockIdx(c.mock)]
	data, err := c.get("/uapi/overseas-stock/v1/trading/inquire-balance", trID, map[string]string{
		"CANO": c.cano, "ACNT_PRDT_CD": c.acntPrdtCd,
		"OVRS_EXCG_CD": "NASD", "TR_CRCY_CD": "USD",
		"CTX_AREA_FK200": "", "CTX_AREA_NK200": "",
	})
	if err != nil {
		return domain.Balance{}, err
	}
	return parseBalance(data, domain.SymbolOverseas, "NASD"), nil
}

func parseBalance(data map[string]interface{}, kind domain.SymbolKind, exchange string) domain.Balance {
	holdings, _ := data["output1"].([]interface{})
	positions := make([]domain.Position, 0, len(holdings))
	for _, h := range holdings {
		m, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		qty := int(atof(m["hldg_qty"]))
		if qty <= 0 {
			continue
		}
		positions = append(positions, domain.Position{
			Symbol:       domain.Symbol{Code: asString(m["pdno"]), Kind: kind, Exchange: exchange},
			Quantity:     qty,
			AverageCost:  atof(m["pchs_avg_pric"]),
			CurrentPrice: atof(m["prpr"]),
			PnLAmount:    atof(m["evlu_pfls_amt"]),
			PnLPercent:   atof(m["evlu_pfls_rt"]),
		})
	}

	var summary map[string]interface{}
	switch v := data["output2"].(type) {
	case []interface{}:
		if len(v) > 0 {
			summary, _ = v[0].(map[string]interface{})
		}
	case map[string]interface{}:
		summary = v
	}
	return domain.Balance{
		Positions: positions,
		Summary: domain.BalanceSummary{
			Cash:            atof(summary["dnca_tot_amt"]),
			TotalEvaluation: atof(summary["tot_evlu_amt"]),
		},
	}
}

// ─────────────────────── helpers ───────────────────────

func mockIdx(mock bool) int {
	if mock {
		return 0
	}
	return 1
}

func atof(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
