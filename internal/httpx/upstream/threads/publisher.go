package threads

import (
	"context"
	"fmt"
)

// Publisher adapts the Threads client to the channel publisher
// contract. It runs the two-step workflow: create container -> publish.
type Publisher struct {
	client *Client
	userID string
}

// NewPublisher creates a new Threads publisher for the given user
func NewPublisher(client *Client, userID string) *Publisher {
	return &Publisher{client: client, userID: userID}
}

// Name returns the routing name of the channel
func (p *Publisher) Name() string { return "threads" }

// Label returns the display name of the channel
func (p *Publisher) Label() string { return "Threads" }

// Publish creates and publishes a thread, with the image attached when
// the draft carries one.
func (p *Publisher) Publish(ctx context.Context, text, imagePath string) (string, error) {
	container, err := p.client.CreateContainer(ctx, CreateContainerInput{
		UserID:   p.userID,
		Text:     text,
		ImageURL: imagePath,
	})
	if err != nil {
		return "", fmt.Errorf("creating container: %w", err)
	}

	out, err := p.client.PublishContainer(ctx, PublishContainerInput{
		UserID:      p.userID,
		ContainerID: container.ID,
	})
	if err != nil {
		return "", fmt.Errorf("publishing container: %w", err)
	}

	return fmt.Sprintf("posted (%s)", out.ID), nil
}
