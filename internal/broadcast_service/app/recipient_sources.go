package app

import (
	"strings"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

// CollectRecipientSources gathers the recipient input of a form in priority
// order: contact-derived numbers first, the manual block last.
func CollectRecipientSources(form domain.RecipientForm) domain.RawInput {
	sources := domain.Sequence{}

	if form.Mode() == domain.RecipientModeMultiple {
		if rows := contactRowEntries(form.Contacts); len(rows) > 0 {
			sources = append(sources, domain.Texts(rows...))
		}
	} else if mobile := strings.TrimSpace(form.ContactMobileNumber); mobile != "" {
		sources = append(sources, domain.Text(mobile))
	}

	if manual := strings.TrimSpace(form.MobileNumbers); manual != "" {
		sources = append(sources, domain.Text(manual))
	}
	return sources
}

// contactRowEntries takes each row's mobile number, or its contact name when
// the row has no number, so the gap shows up as an invalid entry.
func contactRowEntries(rows []domain.ContactRow) []string {
	entries := make([]string, 0, len(rows))
	for _, row := range rows {
		if mobile := strings.TrimSpace(row.MobileNo); mobile != "" {
			entries = append(entries, mobile)
			continue
		}
		if name := strings.TrimSpace(row.Contact); name != "" {
			entries = append(entries, name)
		}
	}
	return entries
}

// MissingMobileCount counts selected contacts that carry no mobile number.
func MissingMobileCount(rows []domain.ContactRow) int {
	count := 0
	for _, row := range rows {
		if strings.TrimSpace(row.Contact) != "" && strings.TrimSpace(row.MobileNo) == "" {
			count++
		}
	}
	return count
}
