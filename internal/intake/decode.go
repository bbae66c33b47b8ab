package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// The wire types are the field whitelist. Keys not named here are dropped by
// the decoder; pointer element types let null entries be told apart from "".

type wireSymptom struct {
	Name               *string   `json:"name"`
	Onset              *string   `json:"onset"`
	Duration           *string   `json:"duration"`
	Location           *string   `json:"location"`
	Character          *string   `json:"character"`
	Severity           *string   `json:"severity"`
	AggravatingFactors *string   `json:"aggravating_factors"`
	RelievingFactors   *string   `json:"relieving_factors"`
	AssociatedSymptoms []*string `json:"associated_symptoms"`
	RedFlags           []*string `json:"red_flags"`
}

type wireMedication struct {
	Name       *string `json:"name"`
	Dose       *string `json:"dose"`
	Frequency  *string `json:"frequency"`
	Route      *string `json:"route"`
	Indication *string `json:"indication"`
}

type wireAllergy struct {
	Substance *string `json:"substance"`
	Reaction  *string `json:"reaction"`
	Severity  *string `json:"severity"`
}

type wireRecord struct {
	ChiefComplaint     *string           `json:"chief_complaint"`
	Symptoms           []*wireSymptom    `json:"symptoms"`
	Medications        []*wireMedication `json:"medications"`
	Allergies          []*wireAllergy    `json:"allergies"`
	PastMedicalHistory []*string         `json:"past_medical_history"`
	FamilyHistory      []*string         `json:"family_history"`
	SocialHistory      []*string         `json:"social_history"`
	RedFlags           []*string         `json:"red_flags"`
	PatientGoals       *string           `json:"patient_goals"`
	OtherNotes         *string           `json:"other_notes"`
}

// ParseRecord decodes and validates a structured record.
//
// Unknown keys are ignored. A value whose JSON type does not match the schema
// (a scalar where a list is expected, a null list element, a missing symptom
// name) yields a *ValidationError. Malformed JSON yields a wrapped syntax error.
func ParseRecord(data []byte) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		var v any
		err := json.Unmarshal(trimmed, &v)
		return Record{}, fmt.Errorf("decode structured record: %w", err)
	}
	if trimmed[0] != '{' {
		return Record{}, &ValidationError{Reason: "top-level value must be a JSON object"}
	}

	var w wireRecord
	if err := json.Unmarshal(trimmed, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Record{}, &ValidationError{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("unexpected JSON %s", typeErr.Value),
			}
		}
		return Record{}, fmt.Errorf("decode structured record: %w", err)
	}

	return w.record()
}

func (w *wireRecord) record() (Record, error) {
	r := Record{
		ChiefComplaint: w.ChiefComplaint,
		PatientGoals:   w.PatientGoals,
		OtherNotes:     w.OtherNotes,
	}

	for i, s := range w.Symptoms {
		field := fmt.Sprintf("symptoms[%d]", i)
		if s == nil {
			return Record{}, &ValidationError{Field: field, Reason: "must be an object"}
		}
		if s.Name == nil {
			return Record{}, &ValidationError{Field: field + ".name", Reason: "required"}
		}
		assoc, err := stringSet(field+".associated_symptoms", s.AssociatedSymptoms)
		if err != nil {
			return Record{}, err
		}
		flags, err := stringSet(field+".red_flags", s.RedFlags)
		if err != nil {
			return Record{}, err
		}
		r.Symptoms = append(r.Symptoms, Symptom{
			Name:               *s.Name,
			Onset:              s.Onset,
			Duration:           s.Duration,
			Location:           s.Location,
			Character:          s.Character,
			Severity:           s.Severity,
			AggravatingFactors: s.AggravatingFactors,
			RelievingFactors:   s.RelievingFactors,
			AssociatedSymptoms: assoc,
			RedFlags:           flags,
		})
	}

	for i, m := range w.Medications {
		field := fmt.Sprintf("medications[%d]", i)
		if m == nil {
			return Record{}, &ValidationError{Field: field, Reason: "must be an object"}
		}
		if m.Name == nil {
			return Record{}, &ValidationError{Field: field + ".name", Reason: "required"}
		}
		r.Medications = append(r.Medications, Medication{
			Name:       *m.Name,
			Dose:       m.Dose,
			Frequency:  m.Frequency,
			Route:      m.Route,
			Indication: m.Indication,
		})
	}

	for i, a := range w.Allergies {
		field := fmt.Sprintf("allergies[%d]", i)
		if a == nil {
			return Record{}, &ValidationError{Field: field, Reason: "must be an object"}
		}
		if a.Substance == nil {
			return Record{}, &ValidationError{Field: field + ".substance", Reason: "required"}
		}
		r.Allergies = append(r.Allergies, Allergy{
			Substance: *a.Substance,
			Reaction:  a.Reaction,
			Severity:  a.Severity,
		})
	}

	var err error
	if r.PastMedicalHistory, err = stringList("past_medical_history", w.PastMedicalHistory); err != nil {
		return Record{}, err
	}
	if r.FamilyHistory, err = stringList("family_history", w.FamilyHistory); err != nil {
		return Record{}, err
	}
	if r.SocialHistory, err = stringList("social_history", w.SocialHistory); err != nil {
		return Record{}, err
	}
	if r.RedFlags, err = stringList("red_flags", w.RedFlags); err != nil {
		return Record{}, err
	}

	r.normalize()
	return r, nil
}

func stringList(field string, in []*string) ([]string, error) {
	out := make([]string, 0, len(in))
	for i, s := range in {
		if s == nil {
			return nil, &ValidationError{Field: fmt.Sprintf("%s[%d]", field, i), Reason: "must be a string"}
		}
		out = append(out, *s)
	}
	return out, nil
}

// stringSet is stringList with duplicates removed, keeping first occurrence.
func stringSet(field string, in []*string) ([]string, error) {
	list, err := stringList(field, in)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(list))
	out := list[:0]
	for _, s := range list {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
