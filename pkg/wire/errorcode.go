package wire

import "encoding/json"

// ErrorCode is the closed enum carried by ERROR envelopes. As with
// PayloadType, parsing is case-sensitive and unknown tags become
// InvalidErrorCode(raw) instead of failing.
type ErrorCode struct {
	tag string
	ok  bool
}

const (
	tagInvalidPayloadType = "INVALID_PAYLOAD_TYPE"
	tagPayloadExtraction  = "PAYLOAD_EXTRACTION"
	tagInvalidSignature   = "INVALID_SIGNATURE"
	tagUserNotFoundErr    = "USER_NOT_FOUND"
	tagServerNotFound     = "SERVER_NOT_FOUND"
	tagNotImplemented     = "NOT_IMPLEMENTED"
	tagInternalError      = "INTERNAL_ERROR"
)

var (
	ErrCodeInvalidPayloadType = ErrorCode{tag: tagInvalidPayloadType, ok: true}
	ErrCodePayloadExtraction  = ErrorCode{tag: tagPayloadExtraction, ok: true}
	ErrCodeInvalidSignature   = ErrorCode{tag: tagInvalidSignature, ok: true}
	ErrCodeUserNotFound       = ErrorCode{tag: tagUserNotFoundErr, ok: true}
	ErrCodeServerNotFound     = ErrorCode{tag: tagServerNotFound, ok: true}
	ErrCodeNotImplemented     = ErrorCode{tag: tagNotImplemented, ok: true}
	ErrCodeInternalError      = ErrorCode{tag: tagInternalError, ok: true}
)

var knownErrorCodes = []ErrorCode{
	ErrCodeInvalidPayloadType, ErrCodePayloadExtraction, ErrCodeInvalidSignature,
	ErrCodeUserNotFound, ErrCodeServerNotFound, ErrCodeNotImplemented, ErrCodeInternalError,
}

// InvalidErrorCode builds the sentinel for an unrecognized error code tag.
func InvalidErrorCode(raw string) ErrorCode {
	return ErrorCode{tag: raw, ok: false}
}

// ParseErrorCode parses a wire error code tag, case-sensitively.
func ParseErrorCode(raw string) ErrorCode {
	for _, ec := range knownErrorCodes {
		if ec.tag == raw {
			return ec
		}
	}
	return InvalidErrorCode(raw)
}

func (e ErrorCode) String() string { return e.tag }
func (e ErrorCode) Valid() bool    { return e.ok }

func (e ErrorCode) Equal(other ErrorCode) bool {
	return e.tag == other.tag && e.ok == other.ok
}

func (e ErrorCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.tag)
}

func (e *ErrorCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*e = ParseErrorCode(s)
	return nil
}

// Status is the tri-state result tag used on several HTTP responses.
type Status string

const (
	StatusOK             Status = "ok"
	StatusError          Status = "error"
	StatusNotImplemented Status = "not_implemented"
)
