package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Origin identifies how a transcript entered the system.
type Origin string

const (
	OriginChatUpload     Origin = "chat_upload"
	OriginChatPaste      Origin = "chat_paste"
	OriginLink           Origin = "link"
	OriginCloudImport    Origin = "cloud_import"
	OriginInboundWebhook Origin = "inbound_webhook"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	switch o {
	case OriginChatUpload, OriginChatPaste, OriginLink, OriginCloudImport, OriginInboundWebhook:
		return true
	}
	return false
}

// ParseOrigin normalizes raw; an empty value defaults to chat_upload.
func ParseOrigin(raw string) (Origin, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return OriginChatUpload, true
	}
	o := Origin(raw)
	return o, o.Valid()
}

const (
	// DefaultTitle is used when the caller supplies none.
	DefaultTitle = "Untitled transcript"
	// MaxTitleRunes bounds stored titles.
	MaxTitleRunes = 200
)

// Transcript is one ingested meeting or call.
type Transcript struct {
	ID                string            `json:"id" gorm:"primaryKey;size:36"`
	Title             string            `json:"title" gorm:"size:200;not null"`
	Origin            Origin            `json:"origin" gorm:"size:32;not null"`
	Status            Status            `json:"status" gorm:"size:32;not null;index"`
	OwnerUserID       string            `json:"owner_user_id" gorm:"size:128;not null;index"`
	ChannelID         string            `json:"channel_id,omitempty" gorm:"size:128"`
	RawText           string            `json:"raw_text,omitempty" gorm:"type:text;not null"`
	ContentHash       string            `json:"content_hash" gorm:"size:32;not null"`
	Language          string            `json:"language,omitempty" gorm:"size:16"`
	DurationSeconds   *int              `json:"duration_seconds,omitempty"`
	ParticipantCount  *int              `json:"participant_count,omitempty"`
	ExternalMeetingID *string           `json:"external_meeting_id,omitempty" gorm:"size:128;index"`
	CallbackURL       string            `json:"callback_url,omitempty" gorm:"size:2048"`
	Summary           string            `json:"summary,omitempty" gorm:"type:text"`
	ContextType       string            `json:"context_type,omitempty" gorm:"size:64"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	ProcessedAt       *time.Time        `json:"processed_at,omitempty"`
	Archived          bool              `json:"archived" gorm:"not null;default:false"`
	ArchivedAt        *time.Time        `json:"archived_at,omitempty"`
}

func (Transcript) TableName() string { return "transcripts" }

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
