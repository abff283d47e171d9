package core

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed version
var clientVersion string

const clientName = "Airtable.go"

func ClientVersion() string {
	return strings.TrimSpace(clientVersion)
}

// DefaultUserAgent identifies this library on every request unless the
// config or a caller-supplied header overrides it.
func DefaultUserAgent() string {
	return fmt.Sprintf("%s/%s", clientName, ClientVersion())
}
