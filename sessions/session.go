// Package sessions turns a completed identity-provider login into an opaque session handle and
// resolves handles back into sessions. Auth states and sessions live in the ephemeral store.
package sessions

import (
	"time"
)

const (
	statePrefix   = "state:"
	sessionPrefix = "session:"
)

// AuthState binds a pending login to the address that started it.
type AuthState struct {
	NetworkAddress string `json:"ip"`
}

type Session struct {
	SubjectID      string     `json:"user_id"`
	DisplayName    string     `json:"username"`
	AvatarRef      string     `json:"avatar,omitempty"`
	NetworkAddress string     `json:"ip"`
	IsMember       bool       `json:"is_server_member"`
	MemberSince    *time.Time `json:"joined_at,omitempty"`
}
