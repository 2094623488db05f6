package catalog

import (
	"encoding/json"

	"github.com/travelbook/admin-console/api"
)

// Record is a catalog entry. Only the identifier and display name are typed;
// every other field round-trips through Attributes untouched.
type Record struct {
	ID         api.ID
	Name       string
	Attributes map[string]any
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = Record{Attributes: make(map[string]any, len(fields))}
	idKey := "id"
	if _, ok := fields[idKey]; !ok {
		idKey = "_id"
	}
	for key, raw := range fields {
		switch key {
		case idKey:
			if err := json.Unmarshal(raw, &r.ID); err != nil {
				return err
			}
		case "name":
			if err := json.Unmarshal(raw, &r.Name); err == nil {
				continue
			}
			fallthrough
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			r.Attributes[key] = v
		}
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(r.Attributes)+2)
	for k, v := range r.Attributes {
		fields[k] = v
	}
	if r.ID != "" {
		fields["id"] = r.ID
	}
	if r.Name != "" {
		fields["name"] = r.Name
	}
	return json.Marshal(fields)
}
