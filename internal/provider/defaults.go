package provider

import (
	"github.com/abaplab/adt-mcp/internal/adt"
)

// Default returns the full provider set in its fixed registration order.
// Adding a provider means appending here; the registry validates that no
// two providers claim the same tool name.
func Default(client *adt.Client) []Provider {
	return []Provider{
		NewAuth(client),
		NewRepository(client),
		NewLocking(client),
		NewTransport(client),
		NewCheck(client),
		NewAtc(client),
		NewUnitTest(client),
		NewGit(client),
	}
}
