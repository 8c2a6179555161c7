package campus

// =============================================================================
// CONFLICT POLICY
// =============================================================================

// FindSchedulingConflict returns the first Confirmed event in existing that
// occupies the candidate's date, time and venue. Planning events never
// block: two drafts may share a slot until one is confirmed.
//
// existing must not contain the candidate itself. On confirmation, callers
// remove the record being confirmed by position, never by identity: an
// identical Confirmed twin still blocks.
func FindSchedulingConflict(candidate Event, existing []Event) (Event, bool) {
	for _, e := range existing {
		if e.Status != StatusConfirmed {
			continue
		}
		if e.SameSlot(candidate) {
			return e, true
		}
	}
	return Event{}, false
}

// HasSchedulingConflict is the boolean form of FindSchedulingConflict for a
// new submission.
func HasSchedulingConflict(candidate Event, existing []Event) bool {
	_, ok := FindSchedulingConflict(candidate, existing)
	return ok
}

// FindRegistrationConflict applies the registration rules in order:
// a registration for the same (email, event) is a duplicate; otherwise one
// for the same (email, date, time) under another event is a slot clash.
// The duplicate check runs over all registrations before any slot check, so
// an identical resubmission is always reported as a duplicate.
func FindRegistrationConflict(candidate Registration, existing []Registration) error {
	email := NormalizeEmail(candidate.UserEmail)

	for _, r := range existing {
		if NormalizeEmail(r.UserEmail) == email && r.EventID == candidate.EventID {
			return &RegistrationConflictError{Reason: ErrDuplicateRegistration, UserEmail: email, Existing: r.EventID}
		}
	}

	for _, r := range existing {
		if NormalizeEmail(r.UserEmail) != email || r.EventID == candidate.EventID {
			continue
		}
		if r.Date == candidate.Date && r.Time == candidate.Time {
			return &RegistrationConflictError{Reason: ErrSlotClash, UserEmail: email, Existing: r.EventID}
		}
	}

	return nil
}

// PlanningCollisions returns identities shared by more than one Planning
// event. Such drafts are indistinguishable; they are reported, never merged.
func PlanningCollisions(events []Event) []EventID {
	counts := make(map[EventID]int)
	var order []EventID
	for _, e := range events {
		if e.Status != StatusPlanning {
			continue
		}
		id := e.ID()
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}

	var out []EventID
	for _, id := range order {
		if counts[id] > 1 {
			out = append(out, id)
		}
	}
	return out
}
