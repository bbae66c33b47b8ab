package intake

import "encoding/json"

// Symptom is one reported symptom with its clinical attributes.
type Symptom struct {
	Name               string   `json:"name"`
	Onset              *string  `json:"onset"`
	Duration           *string  `json:"duration"`
	Location           *string  `json:"location"`
	Character          *string  `json:"character"`
	Severity           *string  `json:"severity"`
	AggravatingFactors *string  `json:"aggravating_factors"`
	RelievingFactors   *string  `json:"relieving_factors"`
	AssociatedSymptoms []string `json:"associated_symptoms"` // Unique, first-seen order
	RedFlags           []string `json:"red_flags"`           // Unique, first-seen order
}

// Medication is a medication the patient reports taking.
type Medication struct {
	Name       string  `json:"name"`
	Dose       *string `json:"dose"`
	Frequency  *string `json:"frequency"`
	Route      *string `json:"route"`
	Indication *string `json:"indication"`
}

// Allergy is a reported allergy and its reaction.
type Allergy struct {
	Substance string  `json:"substance"`
	Reaction  *string `json:"reaction"`
	Severity  *string `json:"severity"`
}

// Record is the normalized structured record for one encounter.
// Absent scalars are nil and marshal as null; absent lists marshal as [].
type Record struct {
	ChiefComplaint     *string      `json:"chief_complaint"`
	Symptoms           []Symptom    `json:"symptoms"`
	Medications        []Medication `json:"medications"`
	Allergies          []Allergy    `json:"allergies"`
	PastMedicalHistory []string     `json:"past_medical_history"`
	FamilyHistory      []string     `json:"family_history"`
	SocialHistory      []string     `json:"social_history"`
	RedFlags           []string     `json:"red_flags"`
	PatientGoals       *string      `json:"patient_goals"`
	OtherNotes         *string      `json:"other_notes"`
}

// EmptyRecord returns a record with every list present and empty.
func EmptyRecord() Record {
	var r Record
	r.normalize()
	return r
}

// normalize replaces nil slices with empty ones so that JSON output uses []
// and decoded values compare equal to constructed ones.
func (r *Record) normalize() {
	if r.Symptoms == nil {
		r.Symptoms = []Symptom{}
	}
	for i := range r.Symptoms {
		if r.Symptoms[i].AssociatedSymptoms == nil {
			r.Symptoms[i].AssociatedSymptoms = []string{}
		}
		if r.Symptoms[i].RedFlags == nil {
			r.Symptoms[i].RedFlags = []string{}
		}
	}
	if r.Medications == nil {
		r.Medications = []Medication{}
	}
	if r.Allergies == nil {
		r.Allergies = []Allergy{}
	}
	if r.PastMedicalHistory == nil {
		r.PastMedicalHistory = []string{}
	}
	if r.FamilyHistory == nil {
		r.FamilyHistory = []string{}
	}
	if r.SocialHistory == nil {
		r.SocialHistory = []string{}
	}
	if r.RedFlags == nil {
		r.RedFlags = []string{}
	}
}

// MarshalJSON encodes the record with empty lists instead of null.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	c := r
	c.Symptoms = append([]Symptom(nil), r.Symptoms...)
	c.normalize()
	return json.Marshal(plain(c))
}

// UnmarshalJSON decodes through ParseRecord so that every decode path applies
// the same field whitelist and validation.
func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
