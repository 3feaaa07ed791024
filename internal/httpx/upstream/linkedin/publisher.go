package linkedin

import (
	"context"
	"fmt"
)

// Publisher adapts the LinkedIn client to the channel publisher
// contract.
type Publisher struct {
	client    *Client
	authorURN string
}

// NewPublisher creates a new LinkedIn publisher for the given author
func NewPublisher(client *Client, authorURN string) *Publisher {
	return &Publisher{client: client, authorURN: authorURN}
}

// Name returns the routing name of the channel
func (p *Publisher) Name() string { return "linkedin" }

// Label returns the display name of the channel
func (p *Publisher) Label() string { return "LinkedIn" }

// Publish creates a public text share.
// TODO: image shares need the two-step registerUpload flow
// (assets?action=registerUpload, then upload the bytes); until then the
// image is dropped and the text goes out alone.
func (p *Publisher) Publish(ctx context.Context, text, imagePath string) (string, error) {
	out, err := p.client.CreateShare(ctx, CreateShareInput{
		AuthorURN: p.authorURN,
		Text:      text,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("posted (%s)", out.ID), nil
}
