package engine

import "sendwave/internal/repository"

// Stores groups the persistent repositories the engine components share.
// All cross-job state lives behind these interfaces; the engine keeps no
// in-process mutable state of its own.
type Stores struct {
	Campaigns  repository.CampaignRepository
	Recipients repository.RecipientRepository
	Variants   repository.VariantRepository
	Channels   repository.ChannelRepository
	Records    repository.SendRecordRepository
}
