// Package sources adapts the raw listing shapes of each upstream source into candidates.
package sources

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/normalizers"
)

// Kind tags the variant carried in an Envelope.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindLicense   Kind = "license"
	KindPlace     Kind = "place"
)

// Record is one raw listing. The set of variants is closed: DirectoryListing, LicenseRow and
// PlaceResult.
type Record interface {
	Kind() Kind
	SourceID() models.SourceKey
	// Candidate normalizes the record. It never fails; unusable fields come out empty.
	Candidate(n *normalizers.Set) models.Candidate
	sealed()
}

// Envelope is the wire shape of a record on every feed.
type Envelope struct {
	Kind   Kind            `json:"kind" validate:"required,oneof=directory license place"`
	Source string          `json:"source" validate:"required"`
	Data   json.RawMessage `json:"data" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses one JSON envelope.
func Decode(raw []byte) (Record, *Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("invalid envelope: %w", err)
	}
	rec, err := DecodeEnvelope(env)
	if err != nil {
		return nil, &env, err
	}
	return rec, &env, nil
}

// DecodeEnvelope turns an envelope into its variant.
func DecodeEnvelope(env Envelope) (Record, error) {
	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	var rec Record
	switch env.Kind {
	case KindDirectory:
		if !IsDirectorySource(env.Source) {
			return nil, fmt.Errorf("unknown directory source '%s'", env.Source)
		}
		listing := &DirectoryListing{}
		if err := unmarshalData(env, listing); err != nil {
			return nil, err
		}
		listing.Source = env.Source
		rec = listing
	case KindLicense:
		row := &LicenseRow{}
		if err := unmarshalData(env, row); err != nil {
			return nil, err
		}
		row.Source = env.Source
		rec = row
	case KindPlace:
		place := &PlaceResult{}
		if err := unmarshalData(env, place); err != nil {
			return nil, err
		}
		place.Source = env.Source
		rec = place
	default:
		return nil, fmt.Errorf("unknown record kind '%s'", env.Kind)
	}

	if err := validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("invalid %s record from %s: %w", env.Kind, env.Source, err)
	}
	return rec, nil
}

func unmarshalData(env Envelope, target any) error {
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("invalid %s data from %s: %w", env.Kind, env.Source, err)
	}
	return nil
}

// Encode wraps a record back into its envelope.
func Encode(rec Record) (Envelope, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: rec.Kind(), Source: rec.SourceID().Source, Data: data}, nil
}
