package app

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

const defaultMessageType = "Transactional"

// ServiceConfig carries the dispatch defaults of the broadcast service.
type ServiceConfig struct {
	SenderID           string
	DefaultMessageType string
	SummarySampleSize  int
}

// DispatchRequest is a send attempt for one broadcast. RecipientNumbers,
// when it yields any token, replaces the recipients derived from Form.
type DispatchRequest struct {
	BroadcastID      string
	Message          string
	Template         string
	TemplateValues   string
	MessageType      string
	DLRURL           string
	MessageID        string
	Form             domain.RecipientForm
	RecipientNumbers domain.RawInput
}

// DispatchResult is what a successful dispatch hands back to the caller.
type DispatchResult struct {
	Job        *domain.DispatchJob     `json:"job"`
	Validation domain.ValidationResult `json:"validation"`
	Summary    RecipientSummary        `json:"summary"`
}

// BroadcastAppService validates broadcast recipients and forwards valid ones
// to the dispatcher.
type BroadcastAppService struct {
	contacts   domain.ContactDirectory
	dispatcher domain.Dispatcher
	broadcasts domain.BroadcastStatusStore
	cfg        ServiceConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewBroadcastAppService creates a new BroadcastAppService.
func NewBroadcastAppService(
	contacts domain.ContactDirectory,
	dispatcher domain.Dispatcher,
	broadcasts domain.BroadcastStatusStore,
	cfg ServiceConfig,
	logger *slog.Logger,
) *BroadcastAppService {
	if cfg.DefaultMessageType == "" {
		cfg.DefaultMessageType = defaultMessageType
	}
	if cfg.SummarySampleSize <= 0 {
		cfg.SummarySampleSize = DefaultSummarySampleSize
	}
	return &BroadcastAppService{
		contacts:   contacts,
		dispatcher: dispatcher,
		broadcasts: broadcasts,
		cfg:        cfg,
		logger:     logger.With("component", "broadcast_app_service"),
		now:        time.Now,
	}
}

// ValidateRecipients validates raw recipient input as submitted.
func (s *BroadcastAppService) ValidateRecipients(ctx context.Context, raw domain.RawInput) (domain.ValidationResult, RecipientSummary) {
	result := ValidateRawRecipients(raw)
	observeValidation(result)
	s.logger.DebugContext(ctx, "Recipients validated",
		"entered", result.EnteredCount, "final", result.FinalCount,
		"invalid", len(result.InvalidEntries), "duplicates", len(result.DuplicateEntries))
	return result, Summarize(result, SummaryOptions{SampleSize: s.cfg.SummarySampleSize})
}

// PreviewForm validates the recipients visible on a form without any lookup.
func (s *BroadcastAppService) PreviewForm(ctx context.Context, form domain.RecipientForm) (domain.ValidationResult, RecipientSummary) {
	result := ValidateRawRecipients(CollectRecipientSources(form))
	observeValidation(result)
	summary := Summarize(result, SummaryOptions{SampleSize: s.cfg.SummarySampleSize, Mode: form.Mode()})
	if missing := MissingMobileCount(form.Contacts); form.Mode() == domain.RecipientModeMultiple && missing > 0 {
		s.logger.InfoContext(ctx, "Selected contacts without mobile number", "count", missing)
	}
	return result, summary
}

// CheckTemplate loads rawValues and reports missing placeholders of template.
func (s *BroadcastAppService) CheckTemplate(ctx context.Context, template, rawValues string) (domain.PlaceholderCheck, error) {
	check, err := CheckTemplate(template, rawValues)
	switch {
	case err != nil:
		templateChecksCounter.WithLabelValues("config_error").Inc()
		s.logger.WarnContext(ctx, "Template values rejected", "error", err)
		return check, err
	case !check.Complete():
		templateChecksCounter.WithLabelValues("missing").Inc()
	default:
		templateChecksCounter.WithLabelValues("complete").Inc()
	}
	return check, nil
}

// ResolveRecipients assembles recipient input for a send. Contact numbers
// come from the directory; the manual block is appended last.
func (s *BroadcastAppService) ResolveRecipients(ctx context.Context, form domain.RecipientForm, explicit domain.RawInput) (domain.RawInput, error) {
	if len(ExtractRecipients(explicit)) > 0 {
		return explicit, nil
	}

	var modeNumbers []string
	var err error
	if form.Mode() == domain.RecipientModeMultiple {
		modeNumbers, err = s.multipleContactNumbers(ctx, form.Contacts)
	} else {
		modeNumbers, err = s.singleContactNumbers(ctx, form)
	}
	if err != nil {
		return nil, err
	}

	sources := domain.Sequence{}
	if len(modeNumbers) > 0 {
		sources = append(sources, domain.Texts(modeNumbers...))
	}
	if manual := strings.TrimSpace(form.MobileNumbers); manual != "" {
		sources = append(sources, domain.Text(manual))
	}
	if len(sources) == 0 {
		return nil, domain.ErrNoRecipients
	}
	return sources, nil
}

func (s *BroadcastAppService) singleContactNumbers(ctx context.Context, form domain.RecipientForm) ([]string, error) {
	fallback := strings.TrimSpace(form.ContactMobileNumber)
	name := strings.TrimSpace(form.Contact)
	if name != "" {
		mobiles, err := s.contacts.MobileNumbers(ctx, []string{name})
		if err != nil {
			return nil, fmt.Errorf("looking up contact %q: %w", name, err)
		}
		if mobile := strings.TrimSpace(mobiles[name]); mobile != "" {
			return []string{mobile}, nil
		}
	}
	if fallback == "" {
		return nil, nil
	}
	return []string{fallback}, nil
}

func (s *BroadcastAppService) multipleContactNumbers(ctx context.Context, rows []domain.ContactRow) ([]string, error) {
	names := newOrderedSet()
	for _, row := range rows {
		if name := strings.TrimSpace(row.Contact); name != "" {
			names.add(name)
		}
	}
	if len(names.items) == 0 {
		return nil, nil
	}

	mobiles, err := s.contacts.MobileNumbers(ctx, names.items)
	if err != nil {
		return nil, fmt.Errorf("looking up %d contacts: %w", len(names.items), err)
	}
	numbers := make([]string, 0, len(names.items))
	for _, name := range names.items {
		if mobile := strings.TrimSpace(mobiles[name]); mobile != "" {
			numbers = append(numbers, mobile)
		}
	}
	return numbers, nil
}

// Dispatch builds the message, validates the resolved recipients and hands
// the unique valid numbers to the dispatcher.
func (s *BroadcastAppService) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	logger := s.logger.With("broadcast_id", req.BroadcastID)

	message, err := BuildMessage(req.Message, req.Template, req.TemplateValues)
	if err != nil {
		dispatchJobsCounter.WithLabelValues("rejected_message").Inc()
		logger.WarnContext(ctx, "Broadcast message rejected", "error", err)
		return nil, err
	}

	raw, err := s.ResolveRecipients(ctx, req.Form, req.RecipientNumbers)
	if err != nil {
		status := "error_contacts"
		if errors.Is(err, domain.ErrNoRecipients) {
			status = "rejected_recipients"
		}
		dispatchJobsCounter.WithLabelValues(status).Inc()
		logger.WarnContext(ctx, "Could not resolve recipients", "error", err)
		return nil, err
	}

	result := ValidateRawRecipients(raw)
	observeValidation(result)
	summary := Summarize(result, SummaryOptions{Title: "Ready to send.", SampleSize: s.cfg.SummarySampleSize, Mode: req.Form.Mode()})
	if result.EnteredCount == 0 {
		dispatchJobsCounter.WithLabelValues("rejected_recipients").Inc()
		return nil, domain.ErrNoRecipients
	}
	if result.FinalCount == 0 {
		dispatchJobsCounter.WithLabelValues("rejected_recipients").Inc()
		logger.WarnContext(ctx, "No valid recipients", "entered", result.EnteredCount, "invalid", len(result.InvalidEntries))
		return &DispatchResult{Validation: result, Summary: summary}, domain.ErrNoValidRecipients
	}

	job := s.newJob(req, message, result.ValidNumbers)
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		dispatchJobsCounter.WithLabelValues("error_dispatch").Inc()
		logger.ErrorContext(ctx, "Failed to dispatch broadcast", "error", err, "job_id", job.JobID)
		return nil, fmt.Errorf("dispatching broadcast job %s: %w", job.JobID, err)
	}

	dispatchJobsCounter.WithLabelValues("dispatched").Inc()
	dispatchRecipientsHist.Observe(float64(len(job.MSISDNs)))
	logger.InfoContext(ctx, "Broadcast dispatched", "job_id", job.JobID, "recipients", len(job.MSISDNs),
		"invalid", len(result.InvalidEntries), "duplicates", len(result.DuplicateEntries))
	return &DispatchResult{Job: job, Validation: result, Summary: summary}, nil
}

// ResendFailed dispatches the broadcast's message again to the recipients
// whose latest delivery failed. The dedupe key includes the time of the
// last outcome, so a repeated request before a new outcome arrives is
// recognized downstream.
func (s *BroadcastAppService) ResendFailed(ctx context.Context, broadcastID string) (*DispatchResult, error) {
	broadcastID = strings.TrimSpace(broadcastID)
	logger := s.logger.With("broadcast_id", broadcastID)

	record, err := s.broadcasts.GetBroadcast(ctx, broadcastID)
	if err != nil {
		dispatchJobsCounter.WithLabelValues("error_resend_lookup").Inc()
		logger.WarnContext(ctx, "Could not load broadcast for resend", "error", err)
		return nil, fmt.Errorf("loading broadcast %s: %w", broadcastID, err)
	}
	if len(ExtractRecipients(domain.Texts(record.FailedRecipients...))) == 0 {
		dispatchJobsCounter.WithLabelValues("rejected_no_failed").Inc()
		return nil, domain.ErrNoFailedRecipients
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		dispatchJobsCounter.WithLabelValues("rejected_message").Inc()
		return nil, domain.ErrEmptyMessage
	}

	result := ValidateRawRecipients(domain.Texts(record.FailedRecipients...))
	observeValidation(result)
	summary := Summarize(result, SummaryOptions{Title: "Resending to failed recipients.", SampleSize: s.cfg.SummarySampleSize})
	if result.FinalCount == 0 {
		dispatchJobsCounter.WithLabelValues("rejected_recipients").Inc()
		logger.WarnContext(ctx, "No valid failed recipients to resend", "invalid", len(result.InvalidEntries))
		return &DispatchResult{Validation: result, Summary: summary}, domain.ErrNoValidRecipients
	}

	job := s.newJob(DispatchRequest{
		BroadcastID: record.ID,
		MessageType: record.MessageType,
		DLRURL:      record.DLRURL,
	}, message, result.ValidNumbers)
	job.DedupeKey = DedupeKey(record.ID+"/resend/"+record.UpdatedAt.UTC().Format(time.RFC3339Nano), message, job.MSISDNs)

	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		dispatchJobsCounter.WithLabelValues("error_dispatch").Inc()
		logger.ErrorContext(ctx, "Failed to dispatch resend", "error", err, "job_id", job.JobID)
		return nil, fmt.Errorf("dispatching resend job %s: %w", job.JobID, err)
	}

	dispatchJobsCounter.WithLabelValues("resent").Inc()
	dispatchRecipientsHist.Observe(float64(len(job.MSISDNs)))
	logger.InfoContext(ctx, "Failed recipients resent", "job_id", job.JobID, "recipients", len(job.MSISDNs))
	return &DispatchResult{Job: job, Validation: result, Summary: summary}, nil
}

func (s *BroadcastAppService) newJob(req DispatchRequest, message string, msisdns []string) *domain.DispatchJob {
	broadcastID := req.BroadcastID
	if broadcastID == "" {
		broadcastID = uuid.NewString()
	}
	messageType := strings.TrimSpace(req.MessageType)
	if messageType == "" {
		messageType = s.cfg.DefaultMessageType
	}
	messageID := strings.TrimSpace(req.MessageID)
	if messageID == "" {
		messageID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return &domain.DispatchJob{
		JobID:       uuid.NewString(),
		BroadcastID: broadcastID,
		Message:     message,
		Sender:      s.cfg.SenderID,
		MessageType: messageType,
		DLRURL:      strings.TrimSpace(req.DLRURL),
		MessageID:   messageID,
		MSISDNs:     msisdns,
		DedupeKey:   DedupeKey(broadcastID, message, msisdns),
		CreatedAt:   s.now().UTC(),
	}
}

// DedupeKey fingerprints a send so a repeated publish of the same broadcast,
// text and recipient list can be recognized downstream.
func DedupeKey(broadcastID, message string, msisdns []string) string {
	h := sha3.New256()
	h.Write([]byte(broadcastID))
	h.Write([]byte{0})
	h.Write([]byte(message))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(msisdns, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
