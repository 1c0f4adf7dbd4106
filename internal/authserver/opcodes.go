package authserver

// Client packet opcodes. Values are fixed by the legacy client.
const (
	OpcodeLogonChallenge     = 0x00
	OpcodeLogonProof         = 0x01
	OpcodeReconnectChallenge = 0x02
	OpcodeReconnectProof     = 0x03
	OpcodeRealmList          = 0x10

	// 0x30–0x34 are the file-transfer (patching) opcodes; patching is not
	// implemented and those packets close the connection.
	OpcodeXferInitiate = 0x30
	OpcodeXferData     = 0x31
)

// AuthResult codes sent in challenge and proof responses.
const (
	ResultSuccess           uint8 = 0x00
	ResultFailBanned        uint8 = 0x03
	ResultFailUnknownAcct   uint8 = 0x04
	ResultFailIncorrectPass uint8 = 0x05
	ResultFailAlreadyOnline uint8 = 0x06
	ResultFailVersionBad    uint8 = 0x09
	ResultFailVersionUpdate uint8 = 0x0A
	ResultFailSuspended     uint8 = 0x0C
	ResultFailParentControl uint8 = 0x0F
	ResultFailLockedIP      uint8 = 0x10
	ResultFailLockedCountry uint8 = 0x18
)

// Security flag bits in the logon challenge response. The client renders an
// extra input for each set bit.
const (
	SecurityFlagNone   uint8 = 0x00
	SecurityFlagPIN    uint8 = 0x01
	SecurityFlagMatrix uint8 = 0x02
	SecurityFlagToken  uint8 = 0x04
)
