package summit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/shopspring/decimal"
)

const (
	EndpointWebCreditLink       = "/webpayment/rest/v1/creditapi/getWebCreditLink/json"
	EndpointInstallmentInfo     = "/webpayment/rest/v1/creditapi/getInstallmentInfo/json"
	EndpointOrderAdditionalInfo = "/webpayment/rest/v1/creditapi/sendOrderAdditionalInfo/json"
	EndpointOrderStatus         = "/webpayment/rest/v1/creditapi/getOrderStatus/json"
)

const (
	ServiceStatusOK = "OK"
	// AdditionalInfoAccepted is the data.status Summit returns when it stored the order details.
	AdditionalInfoAccepted = "0"
)

// Amount renders a decimal with two fractional digits as a JSON number.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// Count renders an installment count as a JSON number.
func Count(n int) json.Number {
	return json.Number(strconv.Itoa(n))
}

type WebCreditLinkRequest struct {
	AuthToken       string      `json:"AuthToken"`
	ErrorPage       string      `json:"errorPage"`
	SuccessPage     string      `json:"successPage"`
	ReferenceNumber string      `json:"referenceNumber"`
	CreditAmount    json.Number `json:"creditAmount"`
}

type WebCreditLinkResponse struct {
	ServiceStatus string `json:"serviceStatus"`
	Data          struct {
		URL string `json:"Url"`
	} `json:"data"`
}

func (r *WebCreditLinkResponse) OK() bool {
	return r.ServiceStatus == ServiceStatusOK && r.Data.URL != ""
}

type InstallmentInfoRequest struct {
	APIKey       string      `json:"APIKey"`
	CreditAmount json.Number `json:"CreditAmount"`
}

type InstallmentInfo struct {
	InstallmentNr    json.Number     `json:"installmentNr"`
	InstallmentValue decimal.Decimal `json:"installmentValue"`
}

type InstallmentInfoResponse struct {
	ServiceStatus string `json:"serviceStatus"`
	Data          struct {
		InstallmentInfoList []InstallmentInfo `json:"installmentInfoList"`
	} `json:"data"`
}

// Schedule converts the response into a schedule. A non-OK status yields an
// empty schedule; entries with an unusable count are skipped.
func (r *InstallmentInfoResponse) Schedule() installment.Schedule {
	if r.ServiceStatus != ServiceStatusOK {
		return installment.Schedule{}
	}
	options := make([]installment.Option, 0, len(r.Data.InstallmentInfoList))
	for _, info := range r.Data.InstallmentInfoList {
		n, err := info.InstallmentNr.Int64()
		if err != nil || n <= 0 {
			continue
		}
		options = append(options, installment.Option{Count: int(n), PerInstallmentValue: info.InstallmentValue})
	}
	return installment.NewSchedule(options...)
}

type AdditionalInfoRequest struct {
	APIKey               string      `json:"APIKey"`
	ReferenceNumber      string      `json:"ReferenceNumber"`
	StNarocila           string      `json:"StNarocila"`
	CenaDDV              json.Number `json:"CenaDDV"`
	CenaBrezDDV          string      `json:"CenaBrezDDV"`
	DDV                  string      `json:"DDV"`
	Artikli              []string    `json:"Artikli"`
	SelectedInstallments *int        `json:"SelectedInstallments,omitempty"`
}

// StatusCode accepts both "0" and 0.
type StatusCode string

func (s *StatusCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = StatusCode(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = StatusCode(n.String())
	return nil
}

type AdditionalInfoResponse struct {
	ServiceStatus string `json:"serviceStatus"`
	Data          struct {
		Status StatusCode `json:"status"`
	} `json:"data"`
}

func (r *AdditionalInfoResponse) Accepted() bool {
	return string(r.Data.Status) == AdditionalInfoAccepted
}

type OrderStatusRequest struct {
	APIKey          string `json:"APIKey"`
	ReferenceNumber string `json:"ReferenceNumber"`
}

type OrderStatusResponse struct {
	ServiceStatus string `json:"serviceStatus"`
	Data          struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Status returns the order status, or "" when Summit did not answer OK.
func (r *OrderStatusResponse) Status() string {
	if r.ServiceStatus != ServiceStatusOK {
		return ""
	}
	return strings.TrimSpace(r.Data.Status)
}

// CreditLinkParams are the values needed to start a Summit checkout.
type CreditLinkParams struct {
	Reference  string
	Amount     decimal.Decimal
	SuccessURL string
	ErrorURL   string
}

func (c *Client) GetWebCreditLink(ctx context.Context, p CreditLinkParams) (*WebCreditLinkResponse, error) {
	var resp WebCreditLinkResponse
	err := c.Call(ctx, http.MethodPost, EndpointWebCreditLink, WebCreditLinkRequest{
		AuthToken:       c.creds.APIKey(),
		ErrorPage:       p.ErrorURL,
		SuccessPage:     p.SuccessURL,
		ReferenceNumber: p.Reference,
		CreditAmount:    Amount(p.Amount),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetInstallmentInfo(ctx context.Context, amount decimal.Decimal) (*InstallmentInfoResponse, error) {
	var resp InstallmentInfoResponse
	err := c.Call(ctx, http.MethodPost, EndpointInstallmentInfo, InstallmentInfoRequest{
		APIKey:       c.creds.APIKey(),
		CreditAmount: Amount(amount),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// OrderInfo is the order summary pushed after checkout.
type OrderInfo struct {
	Reference            string
	Amount               decimal.Decimal
	Items                []string
	SelectedInstallments *int
}

func (c *Client) SendOrderAdditionalInfo(ctx context.Context, info OrderInfo) (*AdditionalInfoResponse, error) {
	items := info.Items
	if items == nil {
		items = []string{}
	}
	var resp AdditionalInfoResponse
	err := c.Call(ctx, http.MethodPost, EndpointOrderAdditionalInfo, AdditionalInfoRequest{
		APIKey:               c.creds.APIKey(),
		ReferenceNumber:      info.Reference,
		StNarocila:           info.Reference,
		CenaDDV:              Amount(info.Amount),
		CenaBrezDDV:          "0",
		DDV:                  "0",
		Artikli:              items,
		SelectedInstallments: info.SelectedInstallments,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, reference string) (*OrderStatusResponse, error) {
	var resp OrderStatusResponse
	err := c.Call(ctx, http.MethodPost, EndpointOrderStatus, OrderStatusRequest{
		APIKey:          c.creds.APIKey(),
		ReferenceNumber: reference,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
