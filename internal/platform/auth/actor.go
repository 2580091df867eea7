package auth

import "context"

// Role is the role a User holds in the clinic.
type Role string

const (
	RoleDoctor    Role = "doctor"
	RoleSecretary Role = "secretary"
	RolePatient   Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RoleSecretary, RolePatient:
		return true
	}
	return false
}

// Actor is the authenticated principal of a request. It is one of
// DoctorActor, SecretaryActor or PatientActor.
type Actor interface {
	UserID() int64
	Role() Role
	// ProfileID is the id of the role profile row (doctors.id,
	// secretaries.id or patients.id), zero when no profile exists.
	ProfileID() int64
	isActor()
}

type DoctorActor struct {
	User     int64
	DoctorID int64
}

func (a DoctorActor) UserID() int64    { return a.User }
func (a DoctorActor) Role() Role       { return RoleDoctor }
func (a DoctorActor) ProfileID() int64 { return a.DoctorID }
func (DoctorActor) isActor()           {}

type SecretaryActor struct {
	User        int64
	SecretaryID int64
}

func (a SecretaryActor) UserID() int64    { return a.User }
func (a SecretaryActor) Role() Role       { return RoleSecretary }
func (a SecretaryActor) ProfileID() int64 { return a.SecretaryID }
func (SecretaryActor) isActor()           {}

type PatientActor struct {
	User      int64
	PatientID int64
}

func (a PatientActor) UserID() int64    { return a.User }
func (a PatientActor) Role() Role       { return RolePatient }
func (a PatientActor) ProfileID() int64 { return a.PatientID }
func (PatientActor) isActor()           {}

// NewActor builds the actor variant for role. It returns nil for an
// unknown role.
func NewActor(role Role, userID, profileID int64) Actor {
	switch role {
	case RoleDoctor:
		return DoctorActor{User: userID, DoctorID: profileID}
	case RoleSecretary:
		return SecretaryActor{User: userID, SecretaryID: profileID}
	case RolePatient:
		return PatientActor{User: userID, PatientID: profileID}
	}
	return nil
}

type contextKey string

const (
	actorKey  contextKey = "actor"
	claimsKey contextKey = "claims"
)

// WithActor returns a copy of ctx carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor placed on ctx by Middleware, or nil.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey).(Actor)
	return a
}

// ClaimsFromContext returns the verified access token claims, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}
