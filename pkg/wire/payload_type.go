package wire

import "encoding/json"

// PayloadType is the closed enum of envelope payload types. Parsing is
// case-sensitive and never trims whitespace: anything that does not match
// one of the known tags exactly becomes InvalidType(raw), never an error.
type PayloadType struct {
	tag string
	ok  bool
}

const (
	tagServerHelloJoin       = "SERVER_HELLO_JOIN"
	tagServerWelcome         = "SERVER_WELCOME"
	tagServerAnnounce        = "SERVER_ANNOUNCE"
	tagHeartbeat             = "HEARTBEAT"
	tagUserHello             = "USER_HELLO"
	tagUserAdvertise         = "USER_ADVERTISE"
	tagUserRemove            = "USER_REMOVE"
	tagUserDeliver           = "USER_DELIVER"
	tagServerDeliver         = "SERVER_DELIVER"
	tagDirectMessage         = "DIRECT_MESSAGE"
	tagPublicChannelJoin     = "PUBLIC_CHANNEL_JOIN"
	tagPublicChannelLeave    = "PUBLIC_CHANNEL_LEAVE"
	tagPublicChannelMessage  = "PUBLIC_CHANNEL_MESSAGE"
	tagFileStart             = "FILE_START"
	tagFileChunk             = "FILE_CHUNK"
	tagFileEnd               = "FILE_END"
	tagUserLogin             = "USER_LOGIN"
	tagUserRegister          = "USER_REGISTER"
	tagUserNotFound          = "USER_NOT_FOUND"
	tagError                 = "ERROR"
	tagListUsers             = "LIST_USERS"
	tagGetPubkey             = "GET_PUBKEY"
)

var (
	ServerHelloJoin      = PayloadType{tag: tagServerHelloJoin, ok: true}
	ServerWelcome        = PayloadType{tag: tagServerWelcome, ok: true}
	ServerAnnounce       = PayloadType{tag: tagServerAnnounce, ok: true}
	Heartbeat            = PayloadType{tag: tagHeartbeat, ok: true}
	UserHello            = PayloadType{tag: tagUserHello, ok: true}
	UserAdvertise        = PayloadType{tag: tagUserAdvertise, ok: true}
	UserRemove           = PayloadType{tag: tagUserRemove, ok: true}
	UserDeliver          = PayloadType{tag: tagUserDeliver, ok: true}
	ServerDeliver        = PayloadType{tag: tagServerDeliver, ok: true}
	DirectMessage        = PayloadType{tag: tagDirectMessage, ok: true}
	PublicChannelJoin    = PayloadType{tag: tagPublicChannelJoin, ok: true}
	PublicChannelLeave   = PayloadType{tag: tagPublicChannelLeave, ok: true}
	PublicChannelMessage = PayloadType{tag: tagPublicChannelMessage, ok: true}
	FileStart            = PayloadType{tag: tagFileStart, ok: true}
	FileChunk            = PayloadType{tag: tagFileChunk, ok: true}
	FileEnd              = PayloadType{tag: tagFileEnd, ok: true}
	UserLogin            = PayloadType{tag: tagUserLogin, ok: true}
	UserRegister         = PayloadType{tag: tagUserRegister, ok: true}
	UserNotFound         = PayloadType{tag: tagUserNotFound, ok: true}
	ErrorType            = PayloadType{tag: tagError, ok: true}
	ListUsers            = PayloadType{tag: tagListUsers, ok: true}
	GetPubkey            = PayloadType{tag: tagGetPubkey, ok: true}
)

var knownPayloadTypes = []PayloadType{
	ServerHelloJoin, ServerWelcome, ServerAnnounce, Heartbeat,
	UserHello, UserAdvertise, UserRemove, UserDeliver, ServerDeliver,
	DirectMessage, PublicChannelJoin, PublicChannelLeave, PublicChannelMessage,
	FileStart, FileChunk, FileEnd, UserLogin, UserRegister, UserNotFound,
	ErrorType, ListUsers, GetPubkey,
}

// InvalidType builds the sentinel value for an unrecognized wire tag. The
// raw string is preserved so callers can report exactly what was seen.
func InvalidType(raw string) PayloadType {
	return PayloadType{tag: raw, ok: false}
}

// ParsePayloadType parses a wire tag into a PayloadType, case-sensitively
// and without trimming whitespace. Unknown tags produce InvalidType(raw)
// rather than an error.
func ParsePayloadType(raw string) PayloadType {
	for _, pt := range knownPayloadTypes {
		if pt.tag == raw {
			return pt
		}
	}
	return InvalidType(raw)
}

// String returns the wire tag (valid or not).
func (p PayloadType) String() string { return p.tag }

// Valid reports whether this is one of the known payload types.
func (p PayloadType) Valid() bool { return p.ok }

// Equal compares two payload types by wire tag and validity.
func (p PayloadType) Equal(other PayloadType) bool {
	return p.tag == other.tag && p.ok == other.ok
}

func (p PayloadType) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.tag)
}

func (p *PayloadType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParsePayloadType(s)
	return nil
}
