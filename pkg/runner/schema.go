package runner

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateBody checks a request body against its inline JSON Schema
// before the request goes on the wire, so a typo fails locally instead
// of at the server.
func ValidateBody(schema, body string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(body),
	)
	if err != nil {
		return fmt.Errorf("body schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("body does not match schema:")
	for _, desc := range result.Errors() {
		sb.WriteString("\n  - ")
		sb.WriteString(desc.String())
	}
	return fmt.Errorf("%s", sb.String())
}
