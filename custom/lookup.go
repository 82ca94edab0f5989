//go:generate go run go.uber.org/mock/mockgen -source=lookup.go -destination=../mocks/mock_lookup.go -package=mocks

package custom

import (
	"context"

	"github.com/haxgun/Arcane/store"
)

// Lookup finds per-channel custom commands. Both methods return an error
// wrapping store.ErrNotFound when nothing matches.
type Lookup interface {
	FindCommand(ctx context.Context, channel, name string) (store.Command, error)
	ResolveAlias(ctx context.Context, channel, name string) (store.Command, error)
}
