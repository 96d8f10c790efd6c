package gateway

import (
	"encoding/json"
	"fmt"
)

// Opcodes used on the gateway connection.
const (
	OpDispatch       = 0
	OpHeartbeat      = 1
	OpIdentify       = 2
	OpResume         = 6
	OpReconnect      = 7
	OpInvalidSession = 9
	OpHello          = 10
	OpHeartbeatACK   = 11
)

// Intent bits selecting which events the gateway delivers.
const (
	IntentGuilds              = 1 << 0
	IntentGuildMembers        = 1 << 1
	IntentGuildMessages       = 1 << 9
	IntentDirectMessage       = 1 << 12
	IntentGroupAndC2C         = 1 << 25
	IntentInteraction         = 1 << 26
	IntentPublicGuildMessages = 1 << 30

	DefaultIntents = IntentPublicGuildMessages | IntentDirectMessage | IntentGroupAndC2C
)

// Dispatch event types carrying inbound messages.
const (
	EventReady               = "READY"
	EventResumed             = "RESUMED"
	EventC2CMessageCreate    = "C2C_MESSAGE_CREATE"
	EventGroupAtMessage      = "GROUP_AT_MESSAGE_CREATE"
	EventAtMessageCreate     = "AT_MESSAGE_CREATE"
	EventDirectMessageCreate = "DIRECT_MESSAGE_CREATE"
)

// Kind is the conversation an inbound message belongs to
type Kind string

const (
	KindC2C     Kind = "c2c"
	KindGroup   Kind = "group"
	KindChannel Kind = "channel"
	KindDirect  Kind = "direct"
)

// Event is an inbound message normalized across conversation kinds. TargetID is what a reply
// is addressed to: the user openid, group openid, channel id or guild id.
type Event struct {
	Kind        Kind
	MessageID   string
	SenderID    string
	TargetID    string
	Content     string
	Timestamp   string
	Attachments []Attachment
}

type Attachment struct {
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
}

type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identifyData struct {
	Token   string `json:"token"`
	Intents int    `json:"intents"`
	Shard   [2]int `json:"shard"`
}

type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

type readyData struct {
	SessionID string `json:"session_id"`
	User      struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type messageData struct {
	ID          string       `json:"id"`
	Content     string       `json:"content"`
	Timestamp   string       `json:"timestamp"`
	GroupOpenID string       `json:"group_openid"`
	ChannelID   string       `json:"channel_id"`
	GuildID     string       `json:"guild_id"`
	Attachments []Attachment `json:"attachments"`
	Author      struct {
		ID           string `json:"id"`
		UserOpenID   string `json:"user_openid"`
		MemberOpenID string `json:"member_openid"`
	} `json:"author"`
}

// ------------------------------------------------------------------------------------------------------
// parseEvent converts a message dispatch into an Event. ok is false for event types that do not
// carry a message.
func parseEvent(eventType string, data json.RawMessage) (Event, bool, error) {
	var kind Kind
	switch eventType {
	case EventC2CMessageCreate:
		kind = KindC2C
	case EventGroupAtMessage:
		kind = KindGroup
	case EventAtMessageCreate:
		kind = KindChannel
	case EventDirectMessageCreate:
		kind = KindDirect
	default:
		return Event{}, false, nil
	}

	var msg messageData
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, false, fmt.Errorf("failed to decode %s: %w", eventType, err)
	}

	ev := Event{
		Kind:        kind,
		MessageID:   msg.ID,
		Content:     msg.Content,
		Timestamp:   msg.Timestamp,
		Attachments: msg.Attachments,
	}

	switch kind {
	case KindC2C:
		ev.SenderID = msg.Author.UserOpenID
		ev.TargetID = msg.Author.UserOpenID
	case KindGroup:
		ev.SenderID = msg.Author.MemberOpenID
		ev.TargetID = msg.GroupOpenID
	case KindChannel:
		ev.SenderID = msg.Author.ID
		ev.TargetID = msg.ChannelID
	case KindDirect:
		ev.SenderID = msg.Author.ID
		ev.TargetID = msg.GuildID
	}

	return ev, true, nil
}
