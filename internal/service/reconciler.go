package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/cassiomorais/summitpay/internal/domain/outbox"
	"github.com/cassiomorais/summitpay/internal/domain/transaction"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Source names the channel a status arrived on.
type Source string

const (
	SourceReturn  Source = "return"
	SourceWebhook Source = "webhook"
	SourceSync    Source = "sync"
)

// WebhookOutcome is the literal text answered to a webhook delivery.
type WebhookOutcome string

const (
	WebhookNoData     WebhookOutcome = "No data received"
	WebhookMissingRef WebhookOutcome = "Missing reference"
	WebhookNotFound   WebhookOutcome = "Transaction not found"
	WebhookBadSig     WebhookOutcome = "Invalid signature"
	WebhookProcessed  WebhookOutcome = "Webhook processed"
)

// Feedback is the data Summit posts back through the customer's browser.
type Feedback struct {
	ReferenceNumber string
	CreditAmount    string
	Status          string
}

// ReconcilerOptions tunes the reconciler.
type ReconcilerOptions struct {
	// EnforceStatusOrdering ignores provider statuses for transactions that are
	// already done or cancelled. Off by default: the last status received wins.
	EnforceStatusOrdering bool
}

// Reconciler maps statuses reported by Summit onto transactions.
type Reconciler struct {
	txRepo     transaction.Repository
	outboxRepo outbox.Repository
	txManager  TransactionManager
	verifier   SignatureVerifier
	opts       ReconcilerOptions
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

func NewReconciler(
	txRepo transaction.Repository,
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	verifier SignatureVerifier,
	opts ReconcilerOptions,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		txRepo:     txRepo,
		outboxRepo: outboxRepo,
		txManager:  txManager,
		verifier:   verifier,
		opts:       opts,
		metrics:    metrics,
		logger:     observability.Component(logger, "reconciler"),
	}
}

// ResolveTransaction returns the one Summit transaction carrying reference.
// Zero matches fail with ErrTransactionNotFound, several with ErrAmbiguousReference.
func (r *Reconciler) ResolveTransaction(ctx context.Context, reference string) (*transaction.Transaction, error) {
	tx, err := resolveOne(ctx, r.txRepo, strings.TrimSpace(reference))
	if errors.Is(err, domainErrors.ErrAmbiguousReference) {
		r.logger.Error().Str("reference", reference).Msg("Several Summit transactions share a reference")
	}
	return tx, err
}

// ValidateAmount compares the reported amount with the stored one. Mismatches
// are logged and counted but never stop the status from being applied.
func (r *Reconciler) ValidateAmount(tx *transaction.Transaction, reported string) []transaction.InvalidParameter {
	mismatches := tx.AmountMismatches(reported)
	for _, m := range mismatches {
		r.metrics.RecordAmountMismatch()
		r.logger.Warn().
			Str("reference", tx.Reference).
			Str("field", m.Field).
			Str("received", m.Received).
			Str("expected", m.Expected).
			Msg("Summit reported a different amount")
	}
	return mismatches
}

// ApplyStatus applies a provider status to tx under a row lock and returns the
// transition taken. tx is refreshed with the stored values.
func (r *Reconciler) ApplyStatus(ctx context.Context, tx *transaction.Transaction, status string, source Source) (transaction.Transition, error) {
	var tr transaction.Transition

	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		locked, err := r.txRepo.LockByID(txCtx, tx.ID)
		if err != nil {
			return err
		}

		logger := observability.WithReference(r.logger, locked.Reference)
		if r.opts.EnforceStatusOrdering && locked.IsTerminal() {
			logger.Info().
				Str("state", string(locked.State)).
				Str("status", status).
				Msg("Ignoring Summit status for finished transaction")
			tr = transaction.Transition{Status: transaction.ParseProviderStatus(status), State: locked.State, Message: locked.StateMessage}
			*tx = *locked
			return nil
		}

		from := locked.State
		var changed bool
		tr, changed = locked.ApplyProviderStatus(status)
		if !tr.Recognized() {
			r.metrics.RecordUnrecognizedStatus()
			logger.Warn().Str("status", status).Msg("Received unrecognized status for Summit payment")
		}
		if changed {
			if err := r.persistTransition(txCtx, locked, from, source, map[string]any{"status": status}); err != nil {
				return err
			}
		}
		*tx = *locked
		return nil
	})
	if err != nil {
		return tr, err
	}
	return tr, nil
}

// ApplyOrderStatus applies a polled order status. It writes nothing when the
// status is unmapped or the transaction already reflects it.
func (r *Reconciler) ApplyOrderStatus(ctx context.Context, tx *transaction.Transaction, orderStatus string) (bool, error) {
	if _, ok := transaction.StateForOrderStatus(orderStatus); !ok {
		return false, nil
	}

	var changed bool
	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		locked, err := r.txRepo.LockByID(txCtx, tx.ID)
		if err != nil {
			return err
		}
		from := locked.State
		if changed = locked.ApplyOrderStatus(orderStatus); !changed {
			return nil
		}
		if err := r.persistTransition(txCtx, locked, from, SourceSync, map[string]any{"order_status": orderStatus}); err != nil {
			return err
		}
		*tx = *locked
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *Reconciler) persistTransition(ctx context.Context, tx *transaction.Transaction, from transaction.State, source Source, extra map[string]any) error {
	if err := r.txRepo.Update(ctx, tx); err != nil {
		return err
	}

	data := map[string]any{
		"from":    string(from),
		"to":      string(tx.State),
		"message": tx.StateMessage,
		"source":  string(source),
	}
	for k, v := range extra {
		data[k] = v
	}
	if err := r.txRepo.AddEvent(ctx, &transaction.Event{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		EventType:     outbox.EventStateChanged,
		EventData:     data,
	}); err != nil {
		return err
	}

	if err := r.outboxRepo.Insert(ctx, outbox.StateChanged(tx.ID, tx.Reference, tx.Amount.StringFixed(2), data)); err != nil {
		return err
	}

	r.metrics.RecordTransition(string(source), string(tx.State))
	r.logger.Info().
		Str("reference", tx.Reference).
		Str("from", string(from)).
		Str("to", string(tx.State)).
		Str("source", string(source)).
		Msg("Transaction state changed")
	return nil
}

// HandleFeedback processes the return redirect. It is not signed; the amount
// check is informational.
func (r *Reconciler) HandleFeedback(ctx context.Context, fb Feedback) (*transaction.Transaction, error) {
	tx, err := r.ResolveTransaction(ctx, fb.ReferenceNumber)
	if err != nil {
		r.logger.Info().Err(err).Str("reference", fb.ReferenceNumber).Msg("Summit feedback could not be matched")
		return nil, err
	}

	r.ValidateAmount(tx, fb.CreditAmount)

	if _, err := r.ApplyStatus(ctx, tx, fb.Status, SourceReturn); err != nil {
		return nil, fmt.Errorf("apply feedback status: %w", err)
	}
	return tx, nil
}

// HandleWebhook authenticates and applies a webhook delivery. The outcome is
// returned even when err is non-nil; err is only set for failures after the
// signature was accepted.
func (r *Reconciler) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookOutcome, error) {
	payload, ok := decodeWebhook(body)
	if !ok {
		r.metrics.RecordWebhook("no_data")
		return WebhookNoData, nil
	}

	reference := strings.TrimSpace(payload["reference"])
	if reference == "" {
		r.metrics.RecordWebhook("missing_reference")
		r.logger.Error().Msg("Summit webhook without reference")
		return WebhookMissingRef, nil
	}

	tx, err := r.ResolveTransaction(ctx, reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrTransactionNotFound) || errors.Is(err, domainErrors.ErrAmbiguousReference) {
			r.metrics.RecordWebhook("not_found")
			r.logger.Error().Err(err).Str("reference", reference).Msg("Summit webhook for unknown transaction")
			return WebhookNotFound, nil
		}
		r.metrics.RecordWebhook("error")
		return WebhookNotFound, err
	}

	if !r.verifier.Verify(signature, body) {
		r.metrics.RecordWebhook("invalid_signature")
		r.logger.Error().Str("reference", reference).Msg("Invalid Summit webhook signature")
		return WebhookBadSig, nil
	}

	if amount, ok := payload["CreditAmount"]; ok {
		r.ValidateAmount(tx, amount)
	}

	if _, err := r.ApplyStatus(ctx, tx, payload["status"], SourceWebhook); err != nil {
		r.metrics.RecordWebhook("error")
		return WebhookProcessed, fmt.Errorf("apply webhook status: %w", err)
	}

	r.metrics.RecordWebhook("processed")
	return WebhookProcessed, nil
}

// decodeWebhook flattens a JSON object into string fields. ok is false for an
// empty body, invalid JSON or an empty object.
func decodeWebhook(body []byte) (map[string]string, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || len(raw) == 0 {
		return nil, false
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			fields[k] = fmt.Sprint(val)
		}
	}
	return fields, true
}
