package farm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the persisted Snapshot document.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{}
	s := r.Reflect(&Snapshot{})
	s.Title = "Valley farm snapshot"
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot schema: %w", err)
	}
	return b, nil
}
