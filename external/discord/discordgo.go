package discord

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/wouk1805/prepgenius/internal/discord"
)

// maxMessageLength is the Discord limit for message content.
const maxMessageLength = 2000

var errDisabled = errors.New("discord client is not configured")

// Client posts over the REST API only; no gateway connection is opened.
type Client struct {
	session *discordgo.Session
}

// NewClient returns a disabled client when token is empty.
func NewClient(token string) (*Client, error) {
	if token == "" {
		return &Client{}, nil
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Client{session: s}, nil
}

func (c *Client) Enabled() bool {
	return c.session != nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) SendChannelMessageWithFile(msg discordpkg.FileMessage) error {
	if !c.Enabled() {
		return errDisabled
	}
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: truncateMessage(msg.Content),
		Files: []*discordgo.File{
			{Name: msg.Filename, ContentType: "text/plain", Reader: bytes.NewReader(msg.FileBody)},
		},
	})
	return err
}

// ChannelName looks up the report channel so a bad ID fails at startup.
func (c *Client) ChannelName(channelID string) (string, error) {
	if !c.Enabled() {
		return "", errDisabled
	}
	channel, err := c.session.Channel(channelID)
	if err != nil {
		if isRESTNotFound(err) {
			return "", fmt.Errorf("discord channel %s not found", channelID)
		}
		return "", err
	}
	return channel.Name, nil
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

func truncateMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= maxMessageLength {
		return content
	}
	return string(runes[:maxMessageLength-1]) + "…"
}

var _ discordpkg.Client = (*Client)(nil)
