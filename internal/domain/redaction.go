package domain

// HiddenMarker replaces text a viewer is not allowed to read.
const HiddenMarker = "[hidden]"

// RedactInjuryForRole returns the view of an injury a user with the given role
// may see. Coaches get neither the description nor treatment entries.
// The input is never modified.
func RedactInjuryForRole(rec InjuryRecord, role Role) InjuryRecord {
	out := rec.Clone()
	if role != RoleCoach {
		return out
	}
	out.Description = HiddenMarker
	log := make([]ActivityEntry, 0, len(out.ActivityLog))
	for _, e := range out.ActivityLog {
		if e.Type == ActivityTreatment {
			continue
		}
		log = append(log, e)
	}
	out.ActivityLog = log
	return out
}

// RedactInjuriesForRole applies RedactInjuryForRole to every record.
func RedactInjuriesForRole(recs []InjuryRecord, role Role) []InjuryRecord {
	out := make([]InjuryRecord, len(recs))
	for i, r := range recs {
		out[i] = RedactInjuryForRole(r, role)
	}
	return out
}
