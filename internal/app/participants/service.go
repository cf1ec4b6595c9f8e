package participants

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"unicode/utf8"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/app/channel"
	"github.com/pixeltrip/tripboard/internal/app/identity"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/clock"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

const (
	DefaultAvatar = "🙂"
	maxNameLength = 40
	maxTitleLen   = 80
	suffixLength  = 4
)

// JoinInput is either a new or returning participant (Name) or a pick from the returning
// list (ParticipantID). Admin codes ignore both and use the fixed identity.
type JoinInput struct {
	Code          string
	Name          string
	Avatar        string
	ParticipantID domain.ParticipantID
}

// Preview is what a code grants before joining.
type Preview struct {
	Resolution identity.Resolution
	Returning  []domain.Participant
}

type Service struct {
	participants *channel.Channel[domain.ParticipantProfile]
	meta         *channel.Channel[domain.TripMeta]
	resolver     *identity.Resolver
	clk          clock.Clock

	newSuffix func() string
}

func NewService(store docstore.Store, resolver *identity.Resolver, clk clock.Clock) *Service {
	return &Service{
		participants: channel.New[domain.ParticipantProfile](store, domain.CollectionParticipants),
		meta:         channel.New[domain.TripMeta](store, domain.CollectionMeta),
		resolver:     resolver,
		clk:          clk,
		newSuffix:    randomSuffix,
	}
}

// SetNewSuffixForTest overrides the random part of generated participant IDs.
// It should not be used in production code.
func (s *Service) SetNewSuffixForTest(fn func() string) {
	if fn != nil {
		s.newSuffix = fn
	}
}

// Channel exposes the participant channel to modules that join against it.
func (s *Service) Channel() *channel.Channel[domain.ParticipantProfile] { return s.participants }

// Preview resolves code and lists the participants that may log back in with it: admin
// codes see everyone, plain codes see non-admins only.
func (s *Service) Preview(ctx context.Context, code string) (Preview, error) {
	res, err := s.resolver.Resolve(code)
	if err != nil {
		return Preview{}, err
	}
	all, err := s.list(ctx, res.TripGroup)
	if err != nil {
		return Preview{}, err
	}
	out := make([]domain.Participant, 0, len(all))
	for _, p := range all {
		if res.Admin != nil || !p.IsAdmin {
			out = append(out, p)
		}
	}
	return Preview{Resolution: res, Returning: out}, nil
}

// Join resolves the code and creates or updates the participant record.
func (s *Service) Join(ctx context.Context, in JoinInput) (domain.Participant, error) {
	res, err := s.resolver.Resolve(in.Code)
	if err != nil {
		return domain.Participant{}, err
	}
	group := res.TripGroup
	avatar := domain.NormalizeHumanName(in.Avatar)

	if res.Admin != nil {
		if avatar == "" {
			avatar = res.Admin.Avatar
		}
		return s.upsert(ctx, group, res.Admin.ParticipantID, res.Admin.Name, avatar, true)
	}

	if in.ParticipantID != "" {
		rec, err := s.participants.Get(ctx, group, domain.RecordID(in.ParticipantID))
		if err != nil {
			return domain.Participant{}, err
		}
		if rec.Value.IsAdmin {
			return domain.Participant{}, apperr.PermissionDenied("admin identities require an admin code")
		}
		if avatar == "" {
			avatar = rec.Value.Avatar
		}
		return s.upsert(ctx, group, in.ParticipantID, rec.Value.Name, avatar, false)
	}

	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.Participant{}, apperr.Validation("name is required", map[string]any{"field": "name"})
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return domain.Participant{}, apperr.Validation(fmt.Sprintf("name must be at most %d characters", maxNameLength), map[string]any{"field": "name"})
	}

	all, err := s.list(ctx, group)
	if err != nil {
		return domain.Participant{}, err
	}
	// Votes are recorded by name, so a plain join may never share an admin's name.
	folded := domain.FoldName(name)
	for _, admin := range s.resolver.AdminNames(group) {
		if domain.FoldName(admin) == folded {
			return domain.Participant{}, apperr.NameTaken(name)
		}
	}
	for _, p := range all {
		if domain.FoldName(p.Name) != folded {
			continue
		}
		if p.IsAdmin {
			return domain.Participant{}, apperr.NameTaken(name)
		}
		if avatar == "" {
			avatar = p.Avatar
		}
		return s.upsert(ctx, group, p.ID, p.Name, avatar, false)
	}

	if avatar == "" {
		avatar = DefaultAvatar
	}
	return s.upsert(ctx, group, s.newParticipantID(name), name, avatar, false)
}

func (s *Service) upsert(ctx context.Context, group domain.TripGroupID, id domain.ParticipantID, name, avatar string, admin bool) (domain.Participant, error) {
	existing, err := s.participants.Get(ctx, group, domain.RecordID(id))
	switch {
	case err == nil:
		if err := s.participants.Update(ctx, group, domain.RecordID(id), docstore.Fields{
			"name":    name,
			"avatar":  avatar,
			"isAdmin": admin,
		}); err != nil {
			return domain.Participant{}, err
		}
		existing.Value.Name, existing.Value.Avatar, existing.Value.IsAdmin = name, avatar, admin
		return toParticipant(group, existing), nil
	case apperr.HasCode(err, apperr.CodeNotFound):
		profile := domain.ParticipantProfile{Name: name, Avatar: avatar, IsAdmin: admin, JoinedAt: s.clk.Now().UTC()}
		if err := s.participants.Put(ctx, group, domain.RecordID(id), profile); err != nil {
			return domain.Participant{}, err
		}
		return toParticipant(group, channel.Record[domain.ParticipantProfile]{ID: domain.RecordID(id), Value: profile}), nil
	default:
		return domain.Participant{}, err
	}
}

func (s *Service) newParticipantID(name string) domain.ParticipantID {
	slug := domain.Slug(name)
	if slug == "" {
		slug = "guest"
	}
	return domain.ParticipantID(fmt.Sprintf("%s-%d-%s", slug, s.clk.Now().UnixMilli(), s.newSuffix()))
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id domain.ParticipantID) (domain.Participant, error) {
	rec, err := s.participants.Get(ctx, actor.TripGroup, domain.RecordID(id))
	if err != nil {
		return domain.Participant{}, err
	}
	return toParticipant(actor.TripGroup, rec), nil
}

func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.Participant, error) {
	return s.list(ctx, actor.TripGroup)
}

func (s *Service) list(ctx context.Context, group domain.TripGroupID) ([]domain.Participant, error) {
	recs, err := s.participants.List(ctx, group)
	if err != nil {
		return nil, err
	}
	return toParticipants(group, recs), nil
}

func (s *Service) Subscribe(ctx context.Context, actor domain.Actor, onData func([]domain.Participant), onError func(error)) (docstore.Unsubscribe, error) {
	return s.participants.Subscribe(ctx, actor.TripGroup, func(recs []channel.Record[domain.ParticipantProfile]) {
		onData(toParticipants(actor.TripGroup, recs))
	}, onError)
}

// Remove deletes target from the trip group. Authored content is left in place.
func (s *Service) Remove(ctx context.Context, actor domain.Actor, target domain.ParticipantID) error {
	if actor.ParticipantID == target {
		return apperr.PermissionDenied("you cannot remove yourself")
	}
	if !domain.CanRemoveParticipant(actor, target) {
		return apperr.PermissionDenied("only admins can remove participants")
	}
	return s.participants.Delete(ctx, actor.TripGroup, domain.RecordID(target))
}

// Title returns the trip title, or the default when it was never set.
func (s *Service) Title(ctx context.Context, actor domain.Actor) (string, error) {
	rec, err := s.meta.Get(ctx, actor.TripGroup, domain.TripMetaID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return domain.DefaultTripTitle, nil
		}
		return "", err
	}
	return titleOf(rec.Value), nil
}

func (s *Service) SubscribeTitle(ctx context.Context, actor domain.Actor, onData func(string), onError func(error)) (docstore.Unsubscribe, error) {
	return s.meta.Subscribe(ctx, actor.TripGroup, func(recs []channel.Record[domain.TripMeta]) {
		title := domain.DefaultTripTitle
		for _, r := range recs {
			if r.ID == domain.TripMetaID {
				title = titleOf(r.Value)
			}
		}
		onData(title)
	}, onError)
}

// Rename sets the trip title, creating the metadata document when needed.
func (s *Service) Rename(ctx context.Context, actor domain.Actor, title string) error {
	if !domain.CanRenameTrip(actor) {
		return apperr.PermissionDenied("only admins can rename the trip")
	}
	title = domain.NormalizeHumanName(title)
	if title == "" {
		return apperr.Validation("title is required", map[string]any{"field": "title"})
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return apperr.Validation(fmt.Sprintf("title must be at most %d characters", maxTitleLen), map[string]any{"field": "title"})
	}
	return s.meta.Put(ctx, actor.TripGroup, domain.TripMetaID, domain.TripMeta{Title: title})
}

func titleOf(m domain.TripMeta) string {
	if m.Title == "" {
		return domain.DefaultTripTitle
	}
	return m.Title
}

func toParticipant(group domain.TripGroupID, r channel.Record[domain.ParticipantProfile]) domain.Participant {
	return domain.Participant{
		ID:        domain.ParticipantID(r.ID),
		TripGroup: group,
		Name:      r.Value.Name,
		Avatar:    r.Value.Avatar,
		IsAdmin:   r.Value.IsAdmin,
		JoinedAt:  r.Value.JoinedAt,
	}
}

func toParticipants(group domain.TripGroupID, recs []channel.Record[domain.ParticipantProfile]) []domain.Participant {
	out := make([]domain.Participant, 0, len(recs))
	for _, r := range recs {
		out = append(out, toParticipant(group, r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := domain.FoldName(out[i].Name), domain.FoldName(out[j].Name)
		if fi != fj {
			return fi < fj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func randomSuffix() string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, suffixLength)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		b[i] = charset[n.Int64()]
	}
	return string(b)
}
