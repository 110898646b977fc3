package firebase

import (
	"context"
	"errors"
	"fmt"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrDocumentNotFound = errors.New("document not found")

type Client struct {
	firestoreClient *fs.Client
}

func NewClient(firestoreClient *fs.Client) *Client {
	return &Client{
		firestoreClient: firestoreClient,
	}
}

func (c *Client) Close() error {
	return c.firestoreClient.Close()
}

// GetDocument decodes the document into out. A missing document yields
// ErrDocumentNotFound.
func (c *Client) GetDocument(ctx context.Context, collection string, document string, out interface{}) error {
	snapshot, err := c.firestoreClient.Collection(collection).Doc(document).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrDocumentNotFound
		}

		return fmt.Errorf("getting document %s/%s: %w", collection, document, err)
	}

	if err := snapshot.DataTo(out); err != nil {
		return fmt.Errorf("decoding document %s/%s: %w", collection, document, err)
	}

	return nil
}

// SetDocument creates or fully replaces the document.
func (c *Client) SetDocument(ctx context.Context, collection string, document string, data interface{}) error {
	if _, err := c.firestoreClient.Collection(collection).Doc(document).Set(ctx, data); err != nil {
		return fmt.Errorf("setting document %s/%s: %w", collection, document, err)
	}

	return nil
}

func (c *Client) DeleteDocument(ctx context.Context, collection string, document string) error {
	_, err := c.firestoreClient.Collection(collection).Doc(document).Delete(ctx)
	if err != nil {
		return fmt.Errorf("error deleting document from collection: %w", err)
	}

	return nil
}

func (c *Client) UpdateDocument(ctx context.Context, collection string, document string, data map[string]interface{}) error {
	updates := []fs.Update{}

	for key, value := range data {
		updates = append(updates, fs.Update{
			Path:  key,
			Value: value,
		})
	}

	if _, err := c.firestoreClient.Collection(collection).Doc(document).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrDocumentNotFound
		}

		return fmt.Errorf("error updating document: %w", err)
	}

	return nil
}
