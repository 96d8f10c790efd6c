package qqbot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func c2cMessagesPath(openID string) string {
	return fmt.Sprintf("/v2/users/%s/messages", url.PathEscape(openID))
}

func groupMessagesPath(groupOpenID string) string {
	return fmt.Sprintf("/v2/groups/%s/messages", url.PathEscape(groupOpenID))
}

func channelMessagesPath(channelID string) string {
	return fmt.Sprintf("/channels/%s/messages", url.PathEscape(channelID))
}

func directMessagesPath(guildID string) string {
	return fmt.Sprintf("/dms/%s/messages", url.PathEscape(guildID))
}

// ------------------------------------------------------------------------------------------------------
// SendC2CMessage sends text to a user. msgID marks it as a reply; empty means proactive.
func (c *Client) SendC2CMessage(ctx context.Context, openID, content, msgID string) (*MessageResponse, error) {
	return c.send(ctx, c2cMessagesPath(openID), c.textBody(content, msgID))
}

// ------------------------------------------------------------------------------------------------------
// SendGroupMessage sends text to a group. msgID marks it as a reply; empty means proactive.
func (c *Client) SendGroupMessage(ctx context.Context, groupOpenID, content, msgID string) (*MessageResponse, error) {
	return c.send(ctx, groupMessagesPath(groupOpenID), c.textBody(content, msgID))
}

// ------------------------------------------------------------------------------------------------------
func (c *Client) SendProactiveC2CMessage(ctx context.Context, openID, content string) (*MessageResponse, error) {
	return c.SendC2CMessage(ctx, openID, content, "")
}

// ------------------------------------------------------------------------------------------------------
func (c *Client) SendProactiveGroupMessage(ctx context.Context, groupOpenID, content string) (*MessageResponse, error) {
	return c.SendGroupMessage(ctx, groupOpenID, content, "")
}

// ------------------------------------------------------------------------------------------------------
// SendChannelMessage sends text to a guild channel
func (c *Client) SendChannelMessage(ctx context.Context, channelID, content, msgID string) (*MessageResponse, error) {
	return c.send(ctx, channelMessagesPath(channelID), c.channelTextBody(content, msgID))
}

// ------------------------------------------------------------------------------------------------------
// SendChannelImageMessage sends an image by URL to a guild channel; channels need no upload step
func (c *Client) SendChannelImageMessage(ctx context.Context, channelID, imageURL, msgID, content string) (*MessageResponse, error) {
	body := c.channelTextBody(content, msgID)
	body.Image = imageURL
	return c.send(ctx, channelMessagesPath(channelID), body)
}

// ------------------------------------------------------------------------------------------------------
// SendDirectMessage replies inside a guild direct-message session
func (c *Client) SendDirectMessage(ctx context.Context, guildID, content, msgID string) (*MessageResponse, error) {
	return c.send(ctx, directMessagesPath(guildID), c.channelTextBody(content, msgID))
}

// ------------------------------------------------------------------------------------------------------
func (c *Client) textBody(content, msgID string) messageBody {
	body := messageBody{
		MsgID:  msgID,
		MsgSeq: c.nextSeq(msgID),
	}
	if c.markdown {
		body.MsgType = MsgTypeMarkdown
		body.Markdown = &markdownPayload{Content: content}
	} else {
		body.MsgType = MsgTypeText
		body.Content = content
	}
	return body
}

// ------------------------------------------------------------------------------------------------------
func (c *Client) channelTextBody(content, msgID string) channelBody {
	body := channelBody{MsgID: msgID}
	if c.markdown && content != "" {
		body.Markdown = &markdownPayload{Content: content}
	} else {
		body.Content = content
	}
	return body
}

// ------------------------------------------------------------------------------------------------------
func (c *Client) send(ctx context.Context, path string, body any) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.call(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
