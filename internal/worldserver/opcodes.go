package worldserver

// Opcodes exchanged during session setup. Values are fixed by the legacy
// client protocol.
const (
	OpcodeCMsgPing          uint32 = 0x1DC
	OpcodeSMsgPong          uint32 = 0x1DD
	OpcodeSMsgAuthChallenge uint32 = 0x1EC
	OpcodeCMsgAuthSession   uint32 = 0x1ED
	OpcodeSMsgAuthResponse  uint32 = 0x1EE
	OpcodeCMsgKeepAlive     uint32 = 0x407
	OpcodeCMsgTimeSyncResp  uint32 = 0x391
)

// numMsgTypes is the exclusive upper bound of the client opcode space.
// Anything at or above it is a malformed header.
const numMsgTypes uint32 = 0x51F

// maxClientPacketSize bounds the client header size field, which covers
// the 4-byte opcode plus the payload.
const maxClientPacketSize = 10240

// Session response codes carried in SMSG_AUTH_RESPONSE.
const (
	AuthOK              uint8 = 0x0C
	AuthFailed          uint8 = 0x0D
	AuthReject          uint8 = 0x0E
	AuthVersionMismatch uint8 = 0x14
	AuthUnknownAccount  uint8 = 0x15
	AuthBanned          uint8 = 0x1C
	AuthSuspended       uint8 = 0x20
	AuthLockedEnforced  uint8 = 0x22
)
