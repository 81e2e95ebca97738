package domain

import (
	"context"
	"strings"
	"time"
)

// RecipientMode selects where a broadcast form takes its contact recipients from.
type RecipientMode string

const (
	RecipientModeSingle   RecipientMode = "Single Contact"
	RecipientModeMultiple RecipientMode = "Multiple Contacts"
)

// ParseRecipientMode treats anything other than "Multiple Contacts" as single-contact mode.
func ParseRecipientMode(s string) RecipientMode {
	if strings.TrimSpace(s) == string(RecipientModeMultiple) {
		return RecipientModeMultiple
	}
	return RecipientModeSingle
}

// BroadcastStatus is the delivery state of a broadcast across its recipients.
type BroadcastStatus string

const (
	BroadcastStatusDraft         BroadcastStatus = "Draft"
	BroadcastStatusSent          BroadcastStatus = "Sent"
	BroadcastStatusPartiallySent BroadcastStatus = "Partially Sent"
	BroadcastStatusFailed        BroadcastStatus = "Failed"
)

// ContactRow is one selected contact in multiple-contacts mode.
type ContactRow struct {
	Contact  string `json:"contact"`
	MobileNo string `json:"mobile_no"`
}

// RecipientForm is the recipient-related state of a broadcast form.
type RecipientForm struct {
	RecipientMode       string       `json:"recipient_mode"`
	Contact             string       `json:"contact"`
	ContactMobileNumber string       `json:"contact_mobile_number"`
	Contacts            []ContactRow `json:"contacts"`
	MobileNumbers       string       `json:"mobile_numbers"`
}

// Mode returns the normalized recipient mode of the form.
func (f RecipientForm) Mode() RecipientMode {
	return ParseRecipientMode(f.RecipientMode)
}

// DispatchJob is the payload handed to the external dispatch collaborator.
type DispatchJob struct {
	JobID       string    `json:"job_id"`
	BroadcastID string    `json:"broadcast_id"`
	Message     string    `json:"message"`
	Sender      string    `json:"sender,omitempty"`
	MessageType string    `json:"message_type"`
	DLRURL      string    `json:"dlr_url,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	MSISDNs     []string  `json:"msisdns"`
	DedupeKey   string    `json:"dedupe_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// ContactDirectory resolves contact names to their stored mobile numbers.
// Contacts without a stored number are omitted from the returned map.
type ContactDirectory interface {
	MobileNumbers(ctx context.Context, names []string) (map[string]string, error)
}

// Dispatcher hands a validated recipient list and message to the sending side.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *DispatchJob) error
}

// DispatchOutcome is reported by the sending side once a job is processed.
// Failed lists the numbers whose latest delivery attempt did not succeed.
type DispatchOutcome struct {
	JobID       string   `json:"job_id"`
	BroadcastID string   `json:"broadcast_id"`
	Sent        int      `json:"sent"`
	Total       int      `json:"total"`
	Failed      []string `json:"failed,omitempty"`
}

// BroadcastRecord is the stored state of a broadcast needed to resend it.
type BroadcastRecord struct {
	ID               string
	Message          string
	MessageType      string
	DLRURL           string
	Status           BroadcastStatus
	FailedRecipients []string
	UpdatedAt        time.Time
}

// BroadcastStatusStore persists the resolved status of a broadcast and the
// recipients that failed in its latest outcome.
type BroadcastStatusStore interface {
	UpdateStatus(ctx context.Context, outcome DispatchOutcome, status BroadcastStatus) error
	GetBroadcast(ctx context.Context, broadcastID string) (*BroadcastRecord, error)
}
