package service

import (
	"context"

	"qqbot-service/internal/gateway"
	"qqbot-service/internal/qqbot"
)

// SendService defines the interface for outbound bot operations
type SendService interface {
	Send(ctx context.Context, req *SendRequest) (*qqbot.MessageResponse, error)
	Upload(ctx context.Context, req *UploadRequest) (*qqbot.UploadResult, error)
	HandleEvent(ctx context.Context, ev gateway.Event)
}

// Messenger is the part of the platform client the service drives
type Messenger interface {
	SendC2CMessage(ctx context.Context, openID, content, msgID string) (*qqbot.MessageResponse, error)
	SendGroupMessage(ctx context.Context, groupOpenID, content, msgID string) (*qqbot.MessageResponse, error)
	SendChannelMessage(ctx context.Context, channelID, content, msgID string) (*qqbot.MessageResponse, error)
	SendDirectMessage(ctx context.Context, guildID, content, msgID string) (*qqbot.MessageResponse, error)
	SendC2CImageMessage(ctx context.Context, openID, imageURL, msgID, content string) (*qqbot.MessageResponse, error)
	SendGroupImageMessage(ctx context.Context, groupOpenID, imageURL, msgID, content string) (*qqbot.MessageResponse, error)
	SendChannelImageMessage(ctx context.Context, channelID, imageURL, msgID, content string) (*qqbot.MessageResponse, error)
	UploadC2CMedia(ctx context.Context, openID string, fileType qqbot.MediaFileType, mediaURL string) (*qqbot.UploadResult, error)
	UploadGroupMedia(ctx context.Context, groupOpenID string, fileType qqbot.MediaFileType, mediaURL string) (*qqbot.UploadResult, error)
}
