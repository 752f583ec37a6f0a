package domain

// Payload is the wizard's application document. It is deliberately kept as a
// generic JSON document rather than a struct: rows written under older schema
// versions must round-trip without a migration step, and NormalizePayload
// backfills whatever sections the stored copy predates.
type Payload map[string]any

// Top-level payload sections. Every stored document is normalized to contain
// all of them.
const (
	SectionBenefitType        = "benefitType"
	SectionState              = "state"
	SectionPersonalInfo       = "personalInfo"
	SectionHouseholdMembers   = "householdMembers"
	SectionHouseholdQuestions = "householdQuestions"
	SectionIncomeEmployment   = "incomeEmployment"
	SectionAssets             = "assets"
	SectionHealthDisability   = "healthDisability"
)

// DefaultPayload returns the canonical empty application document: every
// section present with empty values, nested sub-objects defaulted.
func DefaultPayload() Payload {
	return Payload{
		SectionBenefitType: "",
		SectionState:       "",
		SectionPersonalInfo: map[string]any{
			"applyingFor":        "",
			"firstName":          "",
			"lastName":           "",
			"dateOfBirth":        "",
			"languagePreference": "",
			"address": map[string]any{
				"street":  "",
				"city":    "",
				"state":   "",
				"zipCode": "",
			},
			"phone":                "",
			"email":                "",
			"citizenshipStatus":    "",
			"socialSecurityNumber": "",
		},
		SectionHouseholdMembers: []any{},
		SectionHouseholdQuestions: map[string]any{
			"appliedWithDifferentInfo":           "",
			"appliedWithDifferentInfoMembers":    []any{},
			"appliedInOtherState":                "",
			"appliedInOtherStateMembers":         []any{},
			"receivedBenefitsBefore":             "",
			"receivedBenefitsBeforeMembers":      []any{},
			"receivingSNAPThisMonth":             "",
			"receivingSNAPThisMonthMembers":      []any{},
			"disqualifiedFromBenefits":           "",
			"disqualifiedFromBenefitsMembers":    []any{},
			"wantSomeoneElseToReceiveSNAP":       "",
			"wantSomeoneElseToReceiveSNAPMembers": []any{},
		},
		SectionIncomeEmployment: map[string]any{
			"taxFilingStatus": "",
			"employment":      []any{},
			"income":          []any{},
			"expenses":        []any{},
			"housingExpenses": []any{},
		},
		SectionAssets: map[string]any{
			"assets": []any{},
		},
		SectionHealthDisability: map[string]any{
			"healthInsurance": []any{},
			"disabilities": map[string]any{
				"hasDisabled":       false,
				"needsLongTermCare": false,
				"hasIncarcerated":   false,
			},
			"pregnancyInfo": map[string]any{
				"isPregnant": false,
			},
			"medicalConditions": map[string]any{
				"hasChronicConditions": false,
				"conditions":           []any{},
			},
			"medicalBills": map[string]any{
				"hasRecentBills": false,
			},
			"needsNursingServices": "",
		},
	}
}

// NormalizePayload merges a stored document against the canonical defaults so
// every reader sees a fully populated structure regardless of which schema
// version wrote it. The merge is shallow per section: for each top-level key
// the stored value wins when present; for section values that are themselves
// objects, the merge goes one level deeper the same way.
func NormalizePayload(stored Payload) Payload {
	normalized := DefaultPayload()
	if stored == nil {
		return normalized
	}

	for key, def := range normalized {
		value, ok := stored[key]
		if !ok || value == nil {
			continue
		}

		defObj, defIsObj := def.(map[string]any)
		valObj, valIsObj := value.(map[string]any)
		if defIsObj && valIsObj {
			normalized[key] = mergeSection(defObj, valObj)
			continue
		}
		normalized[key] = value
	}

	// Carry forward keys the defaults do not know about yet, so an older
	// binary never drops data written by a newer schema.
	for key, value := range stored {
		if _, known := normalized[key]; !known {
			normalized[key] = value
		}
	}

	return normalized
}

// mergeSection fills missing fields of a stored section from its defaults,
// merging known nested sub-objects (address and friends) one level deeper.
func mergeSection(def, stored map[string]any) map[string]any {
	merged := make(map[string]any, len(def)+len(stored))
	for k, v := range def {
		merged[k] = v
	}
	for k, v := range stored {
		if v == nil {
			continue
		}
		defSub, defIsObj := def[k].(map[string]any)
		valSub, valIsObj := v.(map[string]any)
		if defIsObj && valIsObj {
			sub := make(map[string]any, len(defSub)+len(valSub))
			for dk, dv := range defSub {
				sub[dk] = dv
			}
			for sk, sv := range valSub {
				if sv != nil {
					sub[sk] = sv
				}
			}
			merged[k] = sub
			continue
		}
		merged[k] = v
	}
	return merged
}

// BenefitTypeOf extracts the benefit type section from a payload document.
func BenefitTypeOf(p Payload) BenefitType {
	if p == nil {
		return ""
	}
	if s, ok := p[SectionBenefitType].(string); ok {
		return BenefitType(s)
	}
	return ""
}
