package types

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// HitKind identifies the shape of a HitData payload.
type HitKind string

const (
	HitKindSkills    HitKind = "skills"
	HitKindPositions HitKind = "positions"
	HitKindGeneric   HitKind = "generic"
)

// HitData is the strategy-specific payload of a hit. The set of
// implementations is closed: SkillsHit, PositionsHit and GenericHit.
type HitData interface {
	Kind() HitKind
	isHitData()
}

// SkillsHit lists the matched skills of a person.
type SkillsHit struct {
	Skills []string `json:"skills"`
}

func (SkillsHit) Kind() HitKind { return HitKindSkills }
func (SkillsHit) isHitData()    {}

// Position is one entry of a position history.
type Position struct {
	Title       string `json:"title" mapstructure:"title"`
	Company     string `json:"company" mapstructure:"company"`
	StartDate   string `json:"startDate" mapstructure:"startDate"`
	EndDate     string `json:"endDate" mapstructure:"endDate"`
	Description string `json:"description" mapstructure:"description"`
}

// PositionsHit is a position history matched by a position search.
type PositionsHit struct {
	Positions []Position `json:"positions"`
}

func (PositionsHit) Kind() HitKind { return HitKindPositions }
func (PositionsHit) isHitData()    {}

// GenericHit holds a payload with no dedicated shape.
type GenericHit struct {
	Fields map[string]any `json:"fields"`
}

func (GenericHit) Kind() HitKind { return HitKindGeneric }
func (GenericHit) isHitData()    {}

// HitDecoder converts a raw hit payload read from the store into HitData.
type HitDecoder func(raw any) (HitData, error)

// DecodeHit infers the payload shape: a list of strings is a SkillsHit, a
// list of maps is a PositionsHit and a single map is a GenericHit. A nil
// payload decodes to nil.
func DecodeHit(raw any) (HitData, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case HitData:
		return v, nil
	case []string:
		return SkillsHit{Skills: v}, nil
	case map[string]any:
		return GenericHit{Fields: v}, nil
	case []any:
		if len(v) == 0 {
			return SkillsHit{Skills: []string{}}, nil
		}
		if _, ok := v[0].(map[string]any); ok {
			return DecodePositions(v)
		}
		return DecodeSkills(v)
	default:
		return nil, fmt.Errorf("unsupported hit payload type %T", raw)
	}
}

// DecodeSkills decodes a list payload into a SkillsHit.
func DecodeSkills(raw any) (HitData, error) {
	var skills []string
	if err := weakDecode(raw, &skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills: %w", err)
	}
	return SkillsHit{Skills: skills}, nil
}

// DecodePositions decodes a list of position maps into a PositionsHit.
func DecodePositions(raw any) (HitData, error) {
	var positions []Position
	if err := weakDecode(raw, &positions); err != nil {
		return nil, fmt.Errorf("failed to decode positions: %w", err)
	}
	return PositionsHit{Positions: positions}, nil
}

// DecodeGeneric keeps the payload as a field map.
func DecodeGeneric(raw any) (HitData, error) {
	if raw == nil {
		return nil, nil
	}
	fields := map[string]any{}
	if err := weakDecode(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode generic hit: %w", err)
	}
	return GenericHit{Fields: fields}, nil
}

func weakDecode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
