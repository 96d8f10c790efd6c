package service

import (
	"context"
	"strings"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/gateway"
	"qqbot-service/internal/logging"
	"qqbot-service/internal/metrics"
	"qqbot-service/internal/qqbot"

	"go.uber.org/zap"
)

// sendService routes validated requests to the platform client
type sendService struct {
	messenger Messenger
	autoReply string // Empty disables replies to inbound messages
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewSendService creates a new send service with injected dependencies
func NewSendService(
	messenger Messenger,
	autoReply string,
	logger *zap.Logger,
	m *metrics.Metrics, // Can be nil
) SendService {
	return &sendService{
		messenger: messenger,
		autoReply: autoReply,
		logger:    logging.OrNop(logger),
		metrics:   m,
	}
}

// ------------------------------------------------------------------------------------------------------
// Send delivers a text or image message. Without MsgID it is a proactive message.
func (s *sendService) Send(ctx context.Context, req *SendRequest) (*qqbot.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err // Already wrapped with AppError
	}

	resp, err := s.dispatch(ctx, req)
	if err != nil {
		s.metrics.SendResult(req.TargetType, "error")
		return nil, err // Already wrapped with AppError from the client
	}

	s.metrics.SendResult(req.TargetType, "success")
	s.logger.Info("Message sent",
		zap.String("target_type", req.TargetType),
		zap.String("target_id", req.TargetID),
		zap.String("message_id", resp.ID),
		zap.Bool("reply", req.MsgID != ""),
	)

	return resp, nil
}

// ------------------------------------------------------------------------------------------------------
func (s *sendService) dispatch(ctx context.Context, req *SendRequest) (*qqbot.MessageResponse, error) {
	if req.ImageURL != "" {
		switch req.TargetType {
		case TargetC2C:
			return s.messenger.SendC2CImageMessage(ctx, req.TargetID, req.ImageURL, req.MsgID, req.Content)
		case TargetGroup:
			return s.messenger.SendGroupImageMessage(ctx, req.TargetID, req.ImageURL, req.MsgID, req.Content)
		case TargetChannel:
			return s.messenger.SendChannelImageMessage(ctx, req.TargetID, req.ImageURL, req.MsgID, req.Content)
		}
	}

	switch req.TargetType {
	case TargetC2C:
		return s.messenger.SendC2CMessage(ctx, req.TargetID, req.Content, req.MsgID)
	case TargetGroup:
		return s.messenger.SendGroupMessage(ctx, req.TargetID, req.Content, req.MsgID)
	case TargetChannel:
		return s.messenger.SendChannelMessage(ctx, req.TargetID, req.Content, req.MsgID)
	case TargetDirect:
		return s.messenger.SendDirectMessage(ctx, req.TargetID, req.Content, req.MsgID)
	}

	return nil, apperror.NewValidationError("unsupported target_type "+req.TargetType, apperror.ErrUnknownTargetType)
}

// ------------------------------------------------------------------------------------------------------
func (s *sendService) Upload(ctx context.Context, req *UploadRequest) (*qqbot.UploadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.TargetType == TargetGroup {
		return s.messenger.UploadGroupMedia(ctx, req.TargetID, req.FileType, req.URL)
	}
	return s.messenger.UploadC2CMedia(ctx, req.TargetID, req.FileType, req.URL)
}

// ------------------------------------------------------------------------------------------------------
// HandleEvent logs an inbound message and answers it when auto reply is configured
func (s *sendService) HandleEvent(ctx context.Context, ev gateway.Event) {
	s.logger.Info("Inbound message",
		zap.String("kind", string(ev.Kind)),
		zap.String("message_id", ev.MessageID),
		zap.String("sender_id", ev.SenderID),
		zap.String("target_id", ev.TargetID),
		zap.Int("attachments", len(ev.Attachments)),
	)

	if s.autoReply == "" || ev.TargetID == "" {
		return
	}

	req := &SendRequest{
		TargetType: string(ev.Kind),
		TargetID:   ev.TargetID,
		Content:    s.autoReply,
		MsgID:      ev.MessageID,
	}
	if _, err := s.Send(ctx, req); err != nil {
		s.logger.Error("Auto reply failed",
			zap.String("message_id", ev.MessageID),
			zap.String("content", strings.TrimSpace(ev.Content)),
			zap.Error(err),
		)
	}
}
