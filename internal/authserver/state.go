package authserver

// ConnectionState represents the state machine for a logon connection.
// Transitions are strictly forward except for failure paths into
// StateClosed, which is reachable from everywhere.
type ConnectionState int

const (
	StateChallenge        ConnectionState = iota // TCP connected, awaiting a challenge
	StateLogonProof                              // challenge answered, awaiting SRP proof
	StateReconnectProof                          // reconnect nonce issued, awaiting digest
	StateAuthed                                  // proof accepted
	StateWaitingRealmList                        // realm list served at least once
	StateClosed                                  // terminal
)

func (s ConnectionState) String() string {
	switch s {
	case StateChallenge:
		return "CHALLENGE"
	case StateLogonProof:
		return "LOGON_PROOF"
	case StateReconnectProof:
		return "RECONNECT_PROOF"
	case StateAuthed:
		return "AUTHED"
	case StateWaitingRealmList:
		return "WAITING_REALM_LIST"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
