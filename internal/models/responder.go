package models

// User roles special-cased by the service. Role values in the registry are
// an open set of strings; anything else is simply not notifiable.
const (
	RoleAdmin     = "admin"
	RoleHospital  = "hospital"
	RoleAmbulance = "ambulance"
	RoleResponder = "responder"
)

// NotifiableRoles are the roles whose users receive SOS alerts.
func NotifiableRoles() []string {
	return []string{RoleAmbulance, RoleResponder}
}

// CanManageEmergencies reports whether the role may clear emergencies or
// change their status.
func CanManageEmergencies(role string) bool {
	switch role {
	case RoleAdmin, RoleHospital, RoleAmbulance:
		return true
	}
	return false
}

// Responder is a read-only projection of a registry user.
type Responder struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
