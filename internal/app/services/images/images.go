// Package images decides what reference is stored for a submitted wound
// image: the data URL itself or the location of an uploaded object.
package images

import (
	"context"
)

// Store turns a submitted image into the reference kept on the record.
// Delete removes what Put stored under ref; records that failed to persist
// use it to avoid leaving orphaned objects.
type Store interface {
	Put(ctx context.Context, image string) (string, error)
	Delete(ctx context.Context, ref string) error
	Name() string
}

// Inline keeps the submitted data URL as the reference.
type Inline struct{}

var _ Store = Inline{}

// Put returns image unchanged.
func (Inline) Put(_ context.Context, image string) (string, error) {
	return image, nil
}

// Delete is a no-op: nothing lives outside the record.
func (Inline) Delete(context.Context, string) error { return nil }

// Name implements Store.
func (Inline) Name() string { return "inline" }
