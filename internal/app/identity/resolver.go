// Package identity resolves invite codes into trip-group access.
package identity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/domain"
)

// InviteCode grants plain participant access to a trip group.
type InviteCode struct {
	Code        string
	TripGroup   domain.TripGroupID
	Description string
}

// AdminCode grants access as a fixed, pre-provisioned admin identity.
type AdminCode struct {
	Code          string
	TripGroup     domain.TripGroupID
	ParticipantID domain.ParticipantID
	Name          string
	Avatar        string
}

// AdminIdentity is returned only for admin codes.
type AdminIdentity struct {
	ParticipantID domain.ParticipantID
	Name          string
	Avatar        string
	IsAdmin       bool
}

// Resolution is the outcome of a valid code: the trip group, and the fixed identity when
// the code is an admin code.
type Resolution struct {
	TripGroup   domain.TripGroupID
	Description string
	Admin       *AdminIdentity
}

// Resolver matches codes against a static table. It is immutable and safe for concurrent use.
type Resolver struct {
	invites map[string]InviteCode
	admins  map[string]AdminCode
	groups  []domain.TripGroupID
}

func NewResolver(invites []InviteCode, admins []AdminCode) (*Resolver, error) {
	r := &Resolver{
		invites: make(map[string]InviteCode, len(invites)),
		admins:  make(map[string]AdminCode, len(admins)),
	}
	seen := map[domain.TripGroupID]bool{}
	addGroup := func(g domain.TripGroupID) {
		if !seen[g] {
			seen[g] = true
			r.groups = append(r.groups, g)
		}
	}
	for _, ic := range invites {
		code := canonical(ic.Code)
		if code == "" || ic.TripGroup == "" {
			return nil, fmt.Errorf("invite code %q: code and trip group are required", ic.Code)
		}
		if _, dup := r.invites[code]; dup {
			return nil, fmt.Errorf("invite code %q is defined twice", code)
		}
		ic.Code = code
		r.invites[code] = ic
		addGroup(ic.TripGroup)
	}
	for _, ac := range admins {
		code := canonical(ac.Code)
		if code == "" || ac.TripGroup == "" || ac.ParticipantID == "" || ac.Name == "" {
			return nil, fmt.Errorf("admin code %q: code, trip group, participant id and name are required", ac.Code)
		}
		if _, dup := r.admins[code]; dup {
			return nil, fmt.Errorf("admin code %q is defined twice", code)
		}
		if _, clash := r.invites[code]; clash {
			return nil, fmt.Errorf("admin code %q is also an invite code", code)
		}
		ac.Code = code
		r.admins[code] = ac
		addGroup(ac.TripGroup)
	}
	sort.Slice(r.groups, func(i, j int) bool { return r.groups[i] < r.groups[j] })
	return r, nil
}

// Resolve trims and uppercases code, then matches it exactly against the invite table and
// then the admin table.
func (r *Resolver) Resolve(code string) (Resolution, error) {
	c := canonical(code)
	if ic, ok := r.invites[c]; ok {
		return Resolution{TripGroup: ic.TripGroup, Description: ic.Description}, nil
	}
	if ac, ok := r.admins[c]; ok {
		return Resolution{
			TripGroup:   ac.TripGroup,
			Description: fmt.Sprintf("Admin access for %s", ac.Name),
			Admin: &AdminIdentity{
				ParticipantID: ac.ParticipantID,
				Name:          ac.Name,
				Avatar:        ac.Avatar,
				IsAdmin:       true,
			},
		}, nil
	}
	return Resolution{}, apperr.InvalidCode()
}

// InviteCodeFor returns the first plain invite code of group, in code order.
func (r *Resolver) InviteCodeFor(group domain.TripGroupID) (string, bool) {
	var codes []string
	for code, ic := range r.invites {
		if ic.TripGroup == group {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return "", false
	}
	sort.Strings(codes)
	return codes[0], true
}

// AdminNames returns the display names of the admin identities of group.
func (r *Resolver) AdminNames(group domain.TripGroupID) []string {
	var names []string
	for _, ac := range r.admins {
		if ac.TripGroup == group {
			names = append(names, ac.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Groups returns every configured trip group.
func (r *Resolver) Groups() []domain.TripGroupID {
	return append([]domain.TripGroupID(nil), r.groups...)
}

func canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
