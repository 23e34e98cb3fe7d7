package agcdkevents

import (
	"github.com/cockroachdb/errors"
)

// EventPattern describes which events a rule matches. Each field lists the
// accepted values for the corresponding event envelope field; empty fields
// match everything. Detail matches against the service-specific payload and
// may nest further maps and lists.
type EventPattern struct {
	Account    []string
	Detail     map[string]any
	DetailType []string
	ID         []string
	Region     []string
	Resources  []string
	Source     []string
	Time       []string
	Version    []string
}

// toMap renders the pattern in the wire format used by EventBridge, with
// hyphenated keys and empty fields omitted.
func (p *EventPattern) toMap() map[string]any {
	out := map[string]any{}

	putList := func(key string, values []string) {
		if len(values) == 0 {
			return
		}
		list := make([]any, 0, len(values))
		for _, v := range values {
			list = append(list, v)
		}
		out[key] = list
	}

	putList("account", p.Account)
	putList("detail-type", p.DetailType)
	putList("id", p.ID)
	putList("region", p.Region)
	putList("resources", p.Resources)
	putList("source", p.Source)
	putList("time", p.Time)
	putList("version", p.Version)

	if len(p.Detail) > 0 {
		out["detail"] = p.Detail
	}

	return out
}

// mergeEventPattern merges an incoming pattern into an existing one. Maps
// merge recursively, lists concatenate, and anything else must agree in
// shape on both sides.
func mergeEventPattern(existing, incoming map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}

	for key, value := range incoming {
		current, ok := merged[key]
		if !ok {
			merged[key] = value
			continue
		}

		combined, err := mergePatternValue(current, value)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot merge event pattern field %q", key)
		}
		merged[key] = combined
	}

	return merged, nil
}

func mergePatternValue(existing, incoming any) (any, error) {
	if em, ok := existing.(map[string]any); ok {
		im, ok := incoming.(map[string]any)
		if !ok {
			return nil, errors.Errorf("existing value is a map, incoming value is %T", incoming)
		}
		return mergeEventPattern(em, im)
	}

	es, eok := toAnySlice(existing)
	is, iok := toAnySlice(incoming)
	if eok && iok {
		return append(es, is...), nil
	}

	return nil, errors.Errorf("existing value is %T, incoming value is %T", existing, incoming)
}

func toAnySlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, 0, len(s))
		for _, e := range s {
			out = append(out, e)
		}
		return out, true
	default:
		return nil, false
	}
}
