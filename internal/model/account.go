package model

import "time"

// Account represents a credential record from the auth database.
// Salt and Verifier are the SRP6 registration values; SessionKey is the
// 40-byte key written after the last successful logon proof.
type Account struct {
	ID            uint32
	Username      string // stored uppercase
	Salt          []byte // 32 bytes
	Verifier      []byte // 32 bytes
	SessionKey    []byte // 40 bytes, nil until first successful logon
	TOTPSecret    string // base32, empty when second factor is disabled
	LastIP        string
	Locked        bool // locked to LastIP
	LockCountry   string
	Online        bool
	Expansion     uint8
	MuteTime      int64
	Locale        uint8
	OS            string
	FailedLogins  uint32
	SecurityLevel uint8
	LastLogin     time.Time
}

// BanStatus describes an active account or IP ban.
type BanStatus struct {
	BanDate   int64
	UnbanDate int64
}

// Permanent reports whether the ban never expires.
func (b BanStatus) Permanent() bool {
	return b.BanDate == b.UnbanDate
}
