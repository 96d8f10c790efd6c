package service

import (
	"fmt"
	"strings"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/qqbot"
)

// Target types accepted by the send endpoints.
const (
	TargetC2C     = "c2c"
	TargetGroup   = "group"
	TargetChannel = "channel"
	TargetDirect  = "direct"
)

// SendRequest represents an outbound message. MsgID turns the send into a reply.
type SendRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Content    string `json:"content"`
	ImageURL   string `json:"image_url,omitempty"`
	MsgID      string `json:"msg_id,omitempty"`
}

// UploadRequest represents a rich media upload by URL
type UploadRequest struct {
	TargetType string              `json:"target_type"`
	TargetID   string              `json:"target_id"`
	FileType   qqbot.MediaFileType `json:"file_type"`
	URL        string              `json:"url"`
}

// ------------------------------------------------------------------------------------------------------
func (r *SendRequest) Validate() error {
	switch r.TargetType {
	case TargetC2C, TargetGroup, TargetChannel, TargetDirect:
	default:
		return apperror.NewValidationError(
			fmt.Sprintf("invalid target_type '%s': must be 'c2c', 'group', 'channel' or 'direct'", r.TargetType),
			apperror.ErrUnknownTargetType,
		)
	}

	if strings.TrimSpace(r.TargetID) == "" {
		return apperror.NewValidationError("target_id cannot be empty", apperror.ErrEmptyTarget)
	}

	if r.Content == "" && r.ImageURL == "" {
		return apperror.NewValidationError("content or image_url is required", apperror.ErrEmptyPayload)
	}

	// direct messages have no upload endpoint
	if r.TargetType == TargetDirect && r.ImageURL != "" {
		return apperror.NewValidationError("image_url is not supported for direct messages", nil)
	}

	return nil
}

// ------------------------------------------------------------------------------------------------------
func (r *UploadRequest) Validate() error {
	if r.TargetType != TargetC2C && r.TargetType != TargetGroup {
		return apperror.NewValidationError(
			fmt.Sprintf("invalid target_type '%s': must be 'c2c' or 'group'", r.TargetType),
			apperror.ErrUnknownTargetType,
		)
	}

	if strings.TrimSpace(r.TargetID) == "" {
		return apperror.NewValidationError("target_id cannot be empty", apperror.ErrEmptyTarget)
	}

	if r.FileType == 0 {
		r.FileType = qqbot.MediaImage
	}
	if !r.FileType.Valid() {
		return apperror.NewValidationError(fmt.Sprintf("invalid file_type %d", r.FileType), nil)
	}

	if r.URL == "" {
		return apperror.NewValidationError("url cannot be empty", nil)
	}

	return nil
}
