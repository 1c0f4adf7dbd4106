package model

// Realm flag bits advertised in the realm list.
const (
	RealmFlagNone         uint8 = 0x00
	RealmFlagInvalid      uint8 = 0x01
	RealmFlagOffline      uint8 = 0x02
	RealmFlagSpecifyBuild uint8 = 0x04
	RealmFlagNewPlayers   uint8 = 0x20
	RealmFlagRecommended  uint8 = 0x40
)

// Realm describes one game-world server advertised to clients after login.
// Read-only during realm list construction.
type Realm struct {
	ID                   uint32
	Name                 string
	Address              string
	Port                 uint16
	Icon                 uint8 // realm type shown in the client list
	Flags                uint8
	Timezone             uint8
	AllowedSecurityLevel uint8
	Population           float32
	Build                uint32
}
