package core

// FrameKind tags one inbound unit delivered by a transport.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
	FramePing
	FramePong
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	default:
		return "unknown"
	}
}

// Frame is a raw inbound payload with its kind.
type Frame struct {
	Kind    FrameKind
	Payload []byte
}

func TextFrame(s string) Frame { return Frame{Kind: FrameText, Payload: []byte(s)} }

func BinaryFrame(b []byte) Frame { return Frame{Kind: FrameBinary, Payload: b} }

// CloseInfo describes a remote-initiated close.
type CloseInfo struct {
	Code   int
	Reason string
}
