package qqbot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/storage"

	"go.uber.org/zap"
)

const (
	scopeC2C   = "c2c"
	scopeGroup = "group"
)

func c2cFilesPath(openID string) string {
	return fmt.Sprintf("/v2/users/%s/files", url.PathEscape(openID))
}

func groupFilesPath(groupOpenID string) string {
	return fmt.Sprintf("/v2/groups/%s/files", url.PathEscape(groupOpenID))
}

// ------------------------------------------------------------------------------------------------------
// UploadC2CMedia uploads a resource by URL for use in a C2C media message
func (c *Client) UploadC2CMedia(ctx context.Context, openID string, fileType MediaFileType, mediaURL string) (*UploadResult, error) {
	return c.upload(ctx, scopeC2C, openID, c2cFilesPath(openID), fileType, mediaURL)
}

// ------------------------------------------------------------------------------------------------------
// UploadGroupMedia uploads a resource by URL for use in a group media message
func (c *Client) UploadGroupMedia(ctx context.Context, groupOpenID string, fileType MediaFileType, mediaURL string) (*UploadResult, error) {
	return c.upload(ctx, scopeGroup, groupOpenID, groupFilesPath(groupOpenID), fileType, mediaURL)
}

// ------------------------------------------------------------------------------------------------------
// SendC2CMediaMessage sends a previously uploaded resource, with optional text
func (c *Client) SendC2CMediaMessage(ctx context.Context, openID, fileInfo, msgID, content string) (*MessageResponse, error) {
	return c.send(ctx, c2cMessagesPath(openID), c.mediaBody(fileInfo, msgID, content))
}

// ------------------------------------------------------------------------------------------------------
// SendGroupMediaMessage sends a previously uploaded resource, with optional text
func (c *Client) SendGroupMediaMessage(ctx context.Context, groupOpenID, fileInfo, msgID, content string) (*MessageResponse, error) {
	return c.send(ctx, groupMessagesPath(groupOpenID), c.mediaBody(fileInfo, msgID, content))
}

// ------------------------------------------------------------------------------------------------------
// SendC2CMediaFromURL uploads mediaURL and sends it. Either step's error is returned as is.
func (c *Client) SendC2CMediaFromURL(ctx context.Context, openID string, fileType MediaFileType, mediaURL, msgID, content string) (*MessageResponse, error) {
	uploaded, err := c.UploadC2CMedia(ctx, openID, fileType, mediaURL)
	if err != nil {
		return nil, err
	}
	return c.SendC2CMediaMessage(ctx, openID, uploaded.FileInfo, msgID, content)
}

// ------------------------------------------------------------------------------------------------------
// SendGroupMediaFromURL uploads mediaURL and sends it. Either step's error is returned as is.
func (c *Client) SendGroupMediaFromURL(ctx context.Context, groupOpenID string, fileType MediaFileType, mediaURL, msgID, content string) (*MessageResponse, error) {
	uploaded, err := c.UploadGroupMedia(ctx, groupOpenID, fileType, mediaURL)
	if err != nil {
		return nil, err
	}
	return c.SendGroupMediaMessage(ctx, groupOpenID, uploaded.FileInfo, msgID, content)
}

// ------------------------------------------------------------------------------------------------------
func (c *Client) SendC2CImageMessage(ctx context.Context, openID, imageURL, msgID, content string) (*MessageResponse, error) {
	return c.SendC2CMediaFromURL(ctx, openID, MediaImage, imageURL, msgID, content)
}

// ------------------------------------------------------------------------------------------------------
func (c *Client) SendGroupImageMessage(ctx context.Context, groupOpenID, imageURL, msgID, content string) (*MessageResponse, error) {
	return c.SendGroupMediaFromURL(ctx, groupOpenID, MediaImage, imageURL, msgID, content)
}

// ------------------------------------------------------------------------------------------------------
func (c *Client) mediaBody(fileInfo, msgID, content string) messageBody {
	return messageBody{
		Content: content,
		MsgType: MsgTypeMedia,
		Media:   &mediaPayload{FileInfo: fileInfo},
		MsgID:   msgID,
		MsgSeq:  c.nextSeq(msgID),
	}
}

// ------------------------------------------------------------------------------------------------------
// upload consults the media cache first; cache failures only cost a real upload
func (c *Client) upload(ctx context.Context, scope, targetID, path string, fileType MediaFileType, mediaURL string) (*UploadResult, error) {
	key := storage.MediaKey{Scope: scope, TargetID: targetID, FileType: int(fileType), URL: mediaURL}.CacheKey()

	if c.mediaCache != nil {
		fileInfo, found, err := c.mediaCache.Get(ctx, key)
		switch {
		case err != nil:
			c.metrics.MediaCacheLookup("error")
			c.logger.Warn("Media cache lookup failed", zap.Error(err))
		case found:
			c.metrics.MediaCacheLookup("hit")
			return &UploadResult{FileInfo: fileInfo, Cached: true}, nil
		default:
			c.metrics.MediaCacheLookup("miss")
		}
	}

	body := uploadBody{
		FileType:   fileType,
		URL:        mediaURL,
		SrvSendMsg: false,
	}

	var result UploadResult
	if err := c.call(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	if result.FileInfo == "" {
		return nil, apperror.NewDecodeError("upload response has no file_info", nil)
	}

	c.logger.Info("Media uploaded",
		zap.String("scope", scope),
		zap.String("file_type", fileType.String()),
		zap.Int64("ttl", result.TTL),
	)

	if c.mediaCache != nil {
		if ttl := storage.CacheTTL(result.TTL); ttl > 0 {
			if err := c.mediaCache.Set(ctx, key, result.FileInfo, ttl); err != nil {
				c.logger.Warn("Failed to cache media reference", zap.Error(err))
			}
		}
	}

	return &result, nil
}
