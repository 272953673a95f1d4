package report

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaVersion identifies the findings report format.
const SchemaVersion = "1"

//go:embed schema/findings.v1.json
var findingsSchema []byte

// ErrSchema wraps every report that fails schema validation.
var ErrSchema = errors.New("report does not match findings schema")

// Schema returns the JSON schema for a findings report.
func Schema() []byte { return append([]byte(nil), findingsSchema...) }

// ValidateJSON checks a serialized report against the findings schema.
func ValidateJSON(data []byte) error {
	res, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(findingsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}
