package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Profile is one directory member, keyed by Farcaster fid. TokenAddress is
// the creator token used as the swap target; the zero address means the
// member has not linked a token yet.
type Profile struct {
	FID          uint64         `json:"fid"`
	Username     string         `json:"username"`
	DisplayName  string         `json:"displayName"`
	Bio          string         `json:"bio,omitempty"`
	AvatarURL    string         `json:"avatarUrl,omitempty"`
	Wallet       common.Address `json:"wallet"`
	TokenAddress common.Address `json:"tokenAddress"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// HasToken reports whether the member has linked a creator token.
func (p *Profile) HasToken() bool {
	return p.TokenAddress != (common.Address{})
}
