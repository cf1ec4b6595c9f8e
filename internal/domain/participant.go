package domain

import "time"

// Participant is a member of a trip group.
type Participant struct {
	ID        ParticipantID
	TripGroup TripGroupID

	Name    string
	Avatar  string
	IsAdmin bool

	JoinedAt time.Time
}

// ParticipantProfile is the stored shape of a participant document. The document id is the
// participant id and the trip group is the collection scope, so neither is repeated here.
type ParticipantProfile struct {
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Actor is the participant performing an action. Every service call receives one explicitly.
type Actor struct {
	ParticipantID ParticipantID
	TripGroup     TripGroupID
	Name          string
	Avatar        string
	IsAdmin       bool
}

// ActorFor builds the acting identity of a participant.
func ActorFor(p Participant) Actor {
	return Actor{
		ParticipantID: p.ID,
		TripGroup:     p.TripGroup,
		Name:          p.Name,
		Avatar:        p.Avatar,
		IsAdmin:       p.IsAdmin,
	}
}
