package audio

import (
	"context"
)

// Player plays an audio file synchronously
type Player interface {
	Play(ctx context.Context, path string) error
}
