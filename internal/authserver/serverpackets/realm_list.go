package serverpackets

import (
	"fmt"

	"github.com/azerothgo/azerothgo/internal/model"
	"github.com/azerothgo/azerothgo/internal/realmlist"
	"github.com/azerothgo/azerothgo/internal/wire"
)

const RealmListOpcode = 0x10

// RealmEntry is one realm row rendered into the realm list response.
type RealmEntry struct {
	Realm     model.Realm
	NumChars  uint8
	Locked    bool
	BuildInfo *realmlist.BuildInfo // non-nil when the realm is build-specific
}

// RealmList writes the realm list response. The payload shape (count width,
// per-realm lock byte, trailer) depends on the client tier. Returns the
// number of bytes written.
func RealmList(buf []byte, entries []RealmEntry, tier realmlist.Tier) int {
	w := wire.NewWriter(buf)
	w.WriteUint8(RealmListOpcode)
	sizeAt := w.Skip(2) // body size, backfilled below

	w.WriteUint32(0)
	if tier == realmlist.TierExpansion {
		w.WriteUint16(uint16(len(entries)))
	} else {
		w.WriteUint8(uint8(len(entries)))
	}

	for _, e := range entries {
		flags := e.Realm.Flags
		if e.BuildInfo != nil {
			flags |= model.RealmFlagOffline | model.RealmFlagSpecifyBuild
		}

		w.WriteUint8(e.Realm.Icon)
		if tier == realmlist.TierExpansion {
			if e.Locked {
				w.WriteUint8(1)
			} else {
				w.WriteUint8(0)
			}
		}
		w.WriteUint8(flags)
		w.WriteCString(e.Realm.Name)
		w.WriteCString(fmt.Sprintf("%s:%d", e.Realm.Address, e.Realm.Port))
		w.WriteFloat32(e.Realm.Population)
		w.WriteUint8(e.NumChars)
		w.WriteUint8(e.Realm.Timezone)
		w.WriteUint8(uint8(e.Realm.ID))

		if e.BuildInfo != nil && flags&model.RealmFlagSpecifyBuild != 0 {
			w.WriteUint8(e.BuildInfo.MajorVersion)
			w.WriteUint8(e.BuildInfo.MinorVersion)
			w.WriteUint8(e.BuildInfo.BugfixVersion)
			w.WriteUint16(uint16(e.BuildInfo.Build))
		}
	}

	if tier == realmlist.TierExpansion {
		w.WriteUint8(0x10)
		w.WriteUint8(0x00)
	} else {
		w.WriteUint8(0x00)
		w.WriteUint8(0x02)
	}

	w.PutUint16At(sizeAt, uint16(w.Len()-3)) // size excludes opcode and size field
	return w.Len()
}
