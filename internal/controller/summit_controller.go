package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/installment"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/infrastructure/config"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/cassiomorais/summitpay/internal/infrastructure/summit"
	"github.com/cassiomorais/summitpay/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxWebhookBodySize = 64 << 10

// Literal answers of the job trigger endpoints.
const (
	textOrderStatusesUpdated    = "Order statuses updated"
	textInstallmentsUpdated     = "Installments updated"
	textOrderInformationUpdated = "Order information updated"
	textCronCompleted           = "Cron tasks completed"
	textJobAlreadyRunning       = "Job already running"
)

// Notifications receives provider callbacks.
type Notifications interface {
	HandleFeedback(ctx context.Context, fb service.Feedback) (*transaction.Transaction, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (service.WebhookOutcome, error)
}

// Jobs triggers the periodic Summit jobs.
type Jobs interface {
	SyncOrderStatuses(ctx context.Context) (service.JobStats, error)
	PushAdditionalOrderInfo(ctx context.Context) (service.JobStats, error)
	RefreshInstallments(ctx context.Context) (service.RefreshResult, error)
	RunAll(ctx context.Context) error
}

// Quoter prices installment plans for the widget.
type Quoter interface {
	Quote(ctx context.Context, price decimal.Decimal) (installment.Schedule, error)
}

// SummitController serves the provider-facing routes under /payment/summit.
type SummitController struct {
	notifications Notifications
	jobs          Jobs
	quoter        Quoter
	processURL    string
	display       config.DisplayConfig
	logger        zerolog.Logger
}

func NewSummitController(
	notifications Notifications,
	jobs Jobs,
	quoter Quoter,
	cfg config.SummitConfig,
	logger zerolog.Logger,
) *SummitController {
	processURL := cfg.ProcessURL
	if processURL == "" {
		processURL = "/payment/process"
	}
	return &SummitController{
		notifications: notifications,
		jobs:          jobs,
		quoter:        quoter,
		processURL:    processURL,
		display:       cfg.Display,
		logger:        observability.Component(logger, "summit_controller"),
	}
}

// Return handles GET/POST /payment/summit/return and /payment/summit/cancel.
// The browser is always redirected, whatever the feedback outcome.
func (h *SummitController) Return(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn().Err(err).Msg("Unreadable Summit feedback")
	} else {
		fb := service.Feedback{
			ReferenceNumber: firstOf(r, "ReferenceNumber", "reference"),
			CreditAmount:    firstOf(r, "CreditAmount", "amount"),
			Status:          r.Form.Get("status"),
		}
		if _, err := h.notifications.HandleFeedback(r.Context(), fb); err != nil {
			h.logger.Warn().Err(err).Str("reference", fb.ReferenceNumber).Str("path", r.URL.Path).Msg("Summit feedback not applied")
		}
	}
	http.Redirect(w, r, h.processURL, http.StatusFound)
}

func firstOf(r *http.Request, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.Form.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// Webhook handles POST /payment/summit/webhook.
func (h *SummitController) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Unreadable Summit webhook body")
		writeText(w, http.StatusBadRequest, string(service.WebhookNoData))
		return
	}

	outcome, err := h.notifications.HandleWebhook(r.Context(), body, r.Header.Get(summit.SignatureHeader))
	if err != nil {
		h.logger.Error().Err(err).Str("outcome", string(outcome)).Msg("Summit webhook failed")
		writeText(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}
	writeText(w, webhookStatus(outcome), string(outcome))
}

func webhookStatus(outcome service.WebhookOutcome) int {
	switch outcome {
	case service.WebhookProcessed:
		return http.StatusOK
	case service.WebhookNotFound:
		return http.StatusNotFound
	case service.WebhookBadSig:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// UpdateOrderStatuses handles GET /payment/summit/update_order_statuses
func (h *SummitController) UpdateOrderStatuses(w http.ResponseWriter, r *http.Request) {
	_, err := h.jobs.SyncOrderStatuses(r.Context())
	h.writeJobResult(w, service.JobOrderStatuses, err, textOrderStatusesUpdated)
}

// UpdateInstallments handles GET /payment/summit/update_installments
func (h *SummitController) UpdateInstallments(w http.ResponseWriter, r *http.Request) {
	_, err := h.jobs.RefreshInstallments(r.Context())
	h.writeJobResult(w, service.JobInstallments, err, textInstallmentsUpdated)
}

// UpdateOrderInformation handles GET /payment/summit/update_order_information
func (h *SummitController) UpdateOrderInformation(w http.ResponseWriter, r *http.Request) {
	_, err := h.jobs.PushAdditionalOrderInfo(r.Context())
	h.writeJobResult(w, service.JobOrderInformation, err, textOrderInformationUpdated)
}

// Cron handles GET /payment/summit/cron. Job failures are logged by the jobs
// themselves and never fail the trigger.
func (h *SummitController) Cron(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.RunAll(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Some Summit cron jobs did not complete")
	}
	writeText(w, http.StatusOK, textCronCompleted)
}

func (h *SummitController) writeJobResult(w http.ResponseWriter, job string, err error, done string) {
	switch {
	case err == nil:
		writeText(w, http.StatusOK, done)
	case errors.Is(err, domainErrors.ErrJobAlreadyRunning):
		writeText(w, http.StatusConflict, textJobAlreadyRunning)
	default:
		h.logger.Error().Err(err).Str("job", job).Msg("Summit job failed")
		writeText(w, http.StatusInternalServerError, "Job failed")
	}
}

// Widget handles GET /payment/summit/widget[?price=...]
func (h *SummitController) Widget(w http.ResponseWriter, r *http.Request) {
	resp := widgetFromConfig(h.display)

	if raw := r.URL.Query().Get("price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, domainErrors.NewValidationError("price", "must be a decimal number"))
			return
		}
		schedule, err := h.quoter.Quote(r.Context(), price)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Price = price.StringFixed(2)
		resp.Installments = fromSchedule(schedule)
		if lowest, ok := schedule.Min(); ok {
			resp.MinInstallment = lowest.StringFixed(2)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
