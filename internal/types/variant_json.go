package types

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Variant type tags used in the wire and storage encodings.
const (
	VariantTypeOneTime   = "one_time"
	VariantTypeRecurring = "recurring"
)

// variantEnvelope is the tagged encoding of a Variant. Both the HTTP layer and
// the postgres store round-trip variants through it.
type variantEnvelope struct {
	Type      string          `json:"type"`
	OneTime   *OneTime        `json:"one_time,omitempty"`
	Recurring *Recurring      `json:"recurring,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// MarshalVariant encodes a variant with its type tag.
func MarshalVariant(v Variant) ([]byte, error) {
	switch vt := v.(type) {
	case OneTime:
		return json.Marshal(variantEnvelope{Type: VariantTypeOneTime, OneTime: &vt})
	case Recurring:
		return json.Marshal(variantEnvelope{Type: VariantTypeRecurring, Recurring: &vt})
	default:
		return nil, errors.Errorf("unknown pre-authorization variant %T", v)
	}
}

// UnmarshalVariant decodes a tagged variant encoding.
func UnmarshalVariant(data []byte) (Variant, error) {
	var env variantEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "failed to decode variant envelope")
	}

	switch env.Type {
	case VariantTypeOneTime:
		if env.OneTime == nil {
			return nil, errors.New("one_time variant payload missing")
		}
		return *env.OneTime, nil
	case VariantTypeRecurring:
		if env.Recurring == nil {
			return nil, errors.New("recurring variant payload missing")
		}
		return *env.Recurring, nil
	default:
		return nil, errors.Errorf("unknown variant type %q", env.Type)
	}
}

// MarshalJSON emits the pre-authorization with its variant in tagged form so
// the variant survives a round trip through JSON.
func (p PreAuthorization) MarshalJSON() ([]byte, error) {
	variantJSON, err := MarshalVariant(p.Variant)
	if err != nil {
		return nil, err
	}

	type alias PreAuthorization
	return json.Marshal(struct {
		alias
		Variant json.RawMessage `json:"variant"`
	}{alias: alias(p), Variant: variantJSON})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *PreAuthorization) UnmarshalJSON(data []byte) error {
	type alias PreAuthorization
	var aux struct {
		alias
		Variant json.RawMessage `json:"variant"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	variant, err := UnmarshalVariant(aux.Variant)
	if err != nil {
		return err
	}

	*p = PreAuthorization(aux.alias)
	p.Variant = variant
	return nil
}
