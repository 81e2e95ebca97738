package app

import "github.com/mtechsms/golang_services/internal/broadcast_service/domain"

// ResolveBroadcastStatus derives the broadcast state from per-recipient results.
func ResolveBroadcastStatus(sent, total int) domain.BroadcastStatus {
	switch {
	case total <= 0:
		return domain.BroadcastStatusDraft
	case sent <= 0:
		return domain.BroadcastStatusFailed
	case sent < total:
		return domain.BroadcastStatusPartiallySent
	default:
		return domain.BroadcastStatusSent
	}
}
