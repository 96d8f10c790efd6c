package qqbot

import (
	"encoding/json"
	"strings"
)

// Message types understood by the v2 send endpoints.
const (
	MsgTypeText     = 0
	MsgTypeMarkdown = 2
	MsgTypeMedia    = 7
)

// MediaFileType selects the kind of resource being uploaded
type MediaFileType int

const (
	MediaImage MediaFileType = 1
	MediaVideo MediaFileType = 2
	MediaVoice MediaFileType = 3
	MediaFile  MediaFileType = 4
)

// ------------------------------------------------------------------------------------------------------
func (t MediaFileType) Valid() bool {
	return t >= MediaImage && t <= MediaFile
}

// ------------------------------------------------------------------------------------------------------
func (t MediaFileType) String() string {
	switch t {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	case MediaVoice:
		return "voice"
	case MediaFile:
		return "file"
	default:
		return "unknown"
	}
}

// messageBody is the v2 (C2C and group) send payload
type messageBody struct {
	Content  string           `json:"content,omitempty"`
	MsgType  int              `json:"msg_type"`
	Markdown *markdownPayload `json:"markdown,omitempty"`
	Media    *mediaPayload    `json:"media,omitempty"`
	MsgID    string           `json:"msg_id,omitempty"`
	MsgSeq   int64            `json:"msg_seq"`
}

// channelBody is the guild channel send payload; channels take no msg_seq
type channelBody struct {
	Content  string           `json:"content,omitempty"`
	Markdown *markdownPayload `json:"markdown,omitempty"`
	Image    string           `json:"image,omitempty"`
	MsgID    string           `json:"msg_id,omitempty"`
}

type markdownPayload struct {
	Content string `json:"content"`
}

type mediaPayload struct {
	FileInfo string `json:"file_info"`
}

type uploadBody struct {
	FileType   MediaFileType `json:"file_type"`
	URL        string        `json:"url"`
	SrvSendMsg bool          `json:"srv_send_msg"`
}

// UploadResult is the platform's answer to a media upload
type UploadResult struct {
	FileUUID string `json:"file_uuid"`
	FileInfo string `json:"file_info"`
	TTL      int64  `json:"ttl"`
	Cached   bool   `json:"-"`
}

// MessageResponse is returned by every send operation
type MessageResponse struct {
	ID        string     `json:"id"`
	Timestamp flexString `json:"timestamp"`
}

type gatewayResponse struct {
	URL string `json:"url"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	if *f == "null" {
		*f = ""
	}
	return nil
}

// ------------------------------------------------------------------------------------------------------
func (f flexString) String() string {
	return string(f)
}
