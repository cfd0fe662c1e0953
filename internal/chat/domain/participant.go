package domain

// Participant is the resolved caller.
// Visitors are identified by their session token, admins by the auth collaborator's member id.
type Participant struct {
	ID   string
	Role SenderRole
}

// IsAdmin reports whether the caller is an admin.
func (p Participant) IsAdmin() bool {
	return p.Role == RoleAdmin && p.ID != ""
}

// Visitor builds a visitor participant.
func Visitor(sessionToken string) Participant {
	return Participant{ID: sessionToken, Role: RoleVisitor}
}

// Admin builds an admin participant.
func Admin(memberID string) Participant {
	return Participant{ID: memberID, Role: RoleAdmin}
}
