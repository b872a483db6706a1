package domain

import "time"

// Team groups athletes under a coach. Athletes join with the team's join code.
type Team struct {
	ID                string     `json:"id"`
	ClientRef         string     `json:"clientRef,omitempty"`
	Name              string     `json:"name"`
	Sport             string     `json:"sport,omitempty"`
	CoachID           string     `json:"coachId"`
	JoinCode          string     `json:"joinCode,omitempty"`
	JoinCodeExpiresAt *time.Time `json:"joinCodeExpiresAt,omitempty"`
	JoinCodeMaxUses   *int       `json:"joinCodeMaxUses,omitempty"`
	JoinCodeUses      int        `json:"joinCodeUses"`
	RequiresApproval  bool       `json:"requiresApproval"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// JoinCodeExpired is true once the code's optional expiry has passed.
func (t Team) JoinCodeExpired(now time.Time) bool {
	return t.JoinCodeExpiresAt != nil && !now.Before(*t.JoinCodeExpiresAt)
}

// JoinCodeExhausted is true when the optional use limit has been reached.
func (t Team) JoinCodeExhausted() bool {
	return t.JoinCodeMaxUses != nil && t.JoinCodeUses >= *t.JoinCodeMaxUses
}

func (t Team) Key() string { return t.ID }
func (t Team) Ref() string { return t.ClientRef }

func (t Team) WithKey(id string) Team {
	t.ID = id
	return t
}

func (t Team) WithRef(ref string) Team {
	t.ClientRef = ref
	return t
}

func (t Team) Clone() Team {
	out := t
	if t.JoinCodeExpiresAt != nil {
		exp := *t.JoinCodeExpiresAt
		out.JoinCodeExpiresAt = &exp
	}
	if t.JoinCodeMaxUses != nil {
		n := *t.JoinCodeMaxUses
		out.JoinCodeMaxUses = &n
	}
	return out
}
