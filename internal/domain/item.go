package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Request tags understood by the dispatcher. The queue itself treats tags as
// opaque strings; only the two registration tags carry queue semantics.
const (
	TagRegisterInstall = "t_register_install"
	TagRegisterOpen    = "t_register_open"
	TagRegisterClose   = "t_register_close"
	TagGetReferralCode = "t_get_referral_code"
	TagGetRewards      = "t_get_rewards"
	TagRedeemRewards   = "t_redeem_rewards"
	TagCompleteAction  = "t_complete_action"
	TagIdentify        = "t_identify"
	TagLogout          = "t_logout"
	TagGetURL          = "t_get_url"
)

const (
	maxTagLen     = 64
	maxPayloadLen = 64 << 10
)

// IsPriorityTag reports whether tag is a registration request that must run
// ahead of everything else queued.
func IsPriorityTag(tag string) bool {
	return tag == TagRegisterInstall || tag == TagRegisterOpen
}

// Item is one pending outbound request. Payload is opaque to the queue and
// owned by whatever dispatches the request.
type Item struct {
	ID        string          `json:"id"`
	Tag       string          `json:"tag"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewItem builds an item with a fresh ID.
func NewItem(tag string, payload json.RawMessage) Item {
	return Item{
		ID:        uuid.New().String(),
		Tag:       tag,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// IsZero reports whether the item is absent. An item without a tag cannot be
// dispatched and is never queued.
func (i Item) IsZero() bool {
	return i.Tag == ""
}

// IsPriority reports whether the item belongs to the registration class.
func (i Item) IsPriority() bool {
	return IsPriorityTag(i.Tag)
}

// EnqueueRequest is the inbound payload for queueing a request over HTTP.
type EnqueueRequest struct {
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate checks tag and payload. Registration tags are refused: they are
// queued through RegisterRequest so at most one registration is ever queued.
func (r *EnqueueRequest) Validate() error {
	if r.Tag == "" || len(r.Tag) > maxTagLen {
		return ErrInvalidTag
	}
	if IsPriorityTag(r.Tag) {
		return ErrRegistrationTag
	}
	if len(r.Payload) > maxPayloadLen {
		return ErrInvalidPayload
	}
	if len(r.Payload) > 0 && !json.Valid(r.Payload) {
		return ErrInvalidPayload
	}
	return nil
}

// RegisterRequest asks for a registration request to be placed at the front
// of the queue. PositionHint 0 means nothing is in flight; when omitted the
// service asks the dispatcher.
type RegisterRequest struct {
	Tag          string `json:"tag"`
	PositionHint *int   `json:"position_hint,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	if !IsPriorityTag(r.Tag) {
		return ErrInvalidTag
	}
	if r.PositionHint != nil && *r.PositionHint < 0 {
		return ErrInvalidPosition
	}
	return nil
}
