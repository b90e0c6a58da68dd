package sqlitemcp

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// rawSchema derives a self-contained JSON schema from a tool input struct.
func rawSchema[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	b, err := json.Marshal(reflector.Reflect(&v))
	if err != nil {
		panic(err)
	}
	return b
}
