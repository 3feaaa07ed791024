package telegram

import (
	"context"
	"fmt"
)

// Publisher adapts the Telegram client to the channel publisher
// contract, posting into a channel.
type Publisher struct {
	client    *Client
	channelID string
}

// NewPublisher creates a new Telegram channel publisher
func NewPublisher(client *Client, channelID string) *Publisher {
	return &Publisher{client: client, channelID: channelID}
}

// Name returns the routing name of the channel
func (p *Publisher) Name() string { return "telegram" }

// Label returns the display name of the channel
func (p *Publisher) Label() string { return "Telegram" }

// Publish sends the draft into the channel. With an image it goes out
// as a photo with a caption, otherwise as a plain message.
func (p *Publisher) Publish(ctx context.Context, text, imagePath string) (string, error) {
	var (
		msg *Message
		err error
	)

	if imagePath != "" {
		msg, err = p.client.SendPhoto(ctx, SendPhotoInput{
			ChatID:   p.channelID,
			PhotoURL: imagePath,
			Caption:  text,
		})
	} else {
		msg, err = p.client.SendMessage(ctx, SendMessageInput{
			ChatID: p.channelID,
			Text:   text,
		})
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("posted (message %d)", msg.MessageID), nil
}

// Notifier delivers operator notifications to a private chat
type Notifier struct {
	client *Client
	chatID string
}

// NewNotifier creates a notifier for the given chat
func NewNotifier(client *Client, chatID string) *Notifier {
	return &Notifier{client: client, chatID: chatID}
}

// Notify sends the text to the operator chat
func (n *Notifier) Notify(ctx context.Context, text string) error {
	_, err := n.client.SendMessage(ctx, SendMessageInput{
		ChatID: n.chatID,
		Text:   text,
	})
	return err
}
