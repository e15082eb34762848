package signing

// Outcome is the result of checking a record's signature. Only OutcomeValid
// counts as verified; the others tell a caller why not.
type Outcome int

const (
	// OutcomeUnsigned: no signature, an empty one, or the placeholder.
	OutcomeUnsigned Outcome = iota
	// OutcomeMalformed: the record or its signature cannot be decoded.
	OutcomeMalformed
	// OutcomeInvalid: the signature does not match the record.
	OutcomeInvalid
	// OutcomeValid: the signature matches the record.
	OutcomeValid
)

// Valid collapses the outcome to the boolean exposed at the public boundary.
func (o Outcome) Valid() bool {
	return o == OutcomeValid
}

func (o Outcome) String() string {
	switch o {
	case OutcomeUnsigned:
		return "unsigned"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeValid:
		return "valid"
	default:
		return "unknown"
	}
}
