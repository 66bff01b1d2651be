package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"turtle_bot/internal/helper"
	"turtle_bot/internal/models"
	"turtle_bot/internal/modules/config"
)

// Client — REST-клиент брокерского шлюза.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	apiSecret string
	insts     map[string]models.Instrument
}

func NewRESTClient(cfg *config.Config) *Client {
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		baseURL:   cfg.Broker.BaseURL,
		apiKey:    cfg.Broker.APIKey,
		apiSecret: cfg.Broker.APISecret,
		insts:     cfg.InstrumentIndex(),
	}
}

func (c *Client) sign(ts, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) SubmitOrder(ctx context.Context, oi models.OrderIntent) (string, error) {
	side := "buy"
	if (oi.Direction == models.DirLong) == oi.IsExit() {
		side = "sell"
	}
	// защитный стоп округляем к тику в защитную сторону
	px := oi.RefPrice
	if inst, ok := c.insts[oi.InstID]; ok && oi.Kind == models.IntentStop {
		if oi.Direction == models.DirLong {
			px = helper.RoundUpToTick(px, inst.TickSz)
		} else {
			px = helper.RoundDownToTick(px, inst.TickSz)
		}
	}

	body := map[string]string{
		"instId":  oi.InstID,
		"side":    side,
		"posSide": string(oi.Direction),
		"ordType": string(oi.Kind),
		"sz":      strconv.Itoa(oi.Qty),
		"px":      helper.FormatPx(px),
		"clOrdId": oi.ID,
		"tag":     oi.Reason,
	}

	var r struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			OrdID string `json:"ordId"`
			SCode string `json:"sCode"`
			SMsg  string `json:"sMsg"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/api/v1/trade/order", body, &r); err != nil {
		return "", err
	}
	if len(r.Data) > 0 && r.Data[0].SCode != "" && r.Data[0].SCode != "0" {
		return "", errors.Errorf("order rejected: sCode=%s sMsg=%s", r.Data[0].SCode, r.Data[0].SMsg)
	}
	if r.Code != "0" {
		return "", errors.Errorf("order error: code=%s msg=%s", r.Code, r.Msg)
	}
	if len(r.Data) == 0 || r.Data[0].OrdID == "" {
		return "", errors.New("empty ordId in response")
	}
	return r.Data[0].OrdID, nil
}

func (c *Client) CancelOrder(ctx context.Context, instID, ordID string) error {
	body := map[string]string{
		"instId": instID,
		"ordId":  ordID,
	}
	var r struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := c.post(ctx, "/api/v1/trade/cancel-order", body, &r); err != nil {
		return err
	}
	if r.Code != "0" {
		return errors.Errorf("cancel error: code=%s msg=%s", r.Code, r.Msg)
	}
	return nil
}

func (c *Client) Equity(ctx context.Context) (float64, error) {
	var r struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			TotalEq string `json:"totalEq"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/api/v1/account/balance", &r); err != nil {
		return 0, err
	}
	if r.Code != "0" || len(r.Data) == 0 {
		return 0, errors.Errorf("balance error: code=%s msg=%s", r.Code, r.Msg)
	}
	eq, err := strconv.ParseFloat(r.Data[0].TotalEq, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse totalEq")
	}
	return eq, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", path)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "%s %s new request", method, path)
	}

	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	req.Header.Set("ACCESS-KEY", c.apiKey)
	req.Header.Set("ACCESS-SIGN", c.sign(ts, method, path, string(payload)))
	req.Header.Set("ACCESS-TIMESTAMP", ts)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s do", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("%s %s http %d: %s", method, path, resp.StatusCode, string(data))
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "%s %s decode; body=%s", method, path, string(data))
	}
	return nil
}
