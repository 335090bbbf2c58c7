package discord

type FileMessage struct {
	ChannelID string
	Content   string
	Filename  string
	FileBody  []byte
}

// Client posts finished interview summaries to a channel.
type Client interface {
	Enabled() bool
	SendChannelMessageWithFile(msg FileMessage) error
	Close() error
}
