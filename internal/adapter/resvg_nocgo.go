//go:build !cgo

package adapter

import "image"

// unavailableResvgClient is used when the binary is built without cgo
type unavailableResvgClient struct{}

// NewResvgClient returns a client that always fails with ErrResvgUnavailable
func NewResvgClient() ResvgClient {
	return &unavailableResvgClient{}
}

func (c *unavailableResvgClient) Render(data []byte, width int) (image.Image, error) {
	return nil, ErrResvgUnavailable
}
