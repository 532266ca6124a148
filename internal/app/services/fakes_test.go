package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
	"github.com/yigit/motobuddies/internal/pkg/gpx"
)

type pairKey struct{ a, b uuid.UUID }

// world is an in-memory database shared by the fake stores.
type world struct {
	mu sync.Mutex

	groups        map[uuid.UUID]*models.Group
	members       map[pairKey]*models.GroupMembership
	rides         map[uuid.UUID]*models.Ride
	participants  map[pairKey]*models.Participant
	notifications []*models.Notification
	profiles      map[uuid.UUID]*models.Profile
	emails        map[uuid.UUID]string

	// forced failures
	inviteCollisions int
	createAttempts   int
	failAdminInsert  bool
	failInsertBatch  error
	insertBatchCalls int
}

func newWorld() *world {
	return &world{
		groups:       make(map[uuid.UUID]*models.Group),
		members:      make(map[pairKey]*models.GroupMembership),
		rides:        make(map[uuid.UUID]*models.Ride),
		participants: make(map[pairKey]*models.Participant),
		profiles:     make(map[uuid.UUID]*models.Profile),
		emails:       make(map[uuid.UUID]string),
	}
}

func (w *world) addUser(name string) uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := uuid.New()
	w.profiles[id] = &models.Profile{ID: id, Username: name, CreatedAt: time.Now()}
	w.emails[id] = strings.ToLower(name) + "@example.com"
	return id
}

func (w *world) addGroup(name, code string, admin uuid.UUID, members ...uuid.UUID) *models.Group {
	w.mu.Lock()
	defer w.mu.Unlock()
	g := &models.Group{ID: uuid.New(), Name: name, InviteCode: code, CreatedAt: time.Now()}
	w.groups[g.ID] = g
	w.members[pairKey{g.ID, admin}] = &models.GroupMembership{GroupID: g.ID, UserID: admin, Role: models.RoleAdmin, JoinedAt: time.Now()}
	for _, m := range members {
		w.members[pairKey{g.ID, m}] = &models.GroupMembership{GroupID: g.ID, UserID: m, Role: models.RoleMember, JoinedAt: time.Now()}
	}
	return g
}

func (w *world) addRide(groupID, creator uuid.UUID, title string, at time.Time) *models.Ride {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := &models.Ride{ID: uuid.New(), GroupID: groupID, CreatedBy: creator, Title: title, DateTime: at, StartLat: 45.46, StartLon: 9.19, CreatedAt: time.Now()}
	w.rides[r.ID] = r
	return r
}

func (w *world) setRSVP(rideID, userID uuid.UUID, status models.RSVPStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.participants[pairKey{rideID, userID}] = &models.Participant{RideID: rideID, UserID: userID, Status: status, UpdatedAt: time.Now()}
}

func (w *world) participantCount(rideID uuid.UUID) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for k := range w.participants {
		if k.a == rideID {
			n++
		}
	}
	return n
}

func (w *world) notificationsFor(userID uuid.UUID) []*models.Notification {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*models.Notification
	for _, n := range w.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (w *world) summary(r *models.Ride) *models.RideSummary {
	s := &models.RideSummary{Ride: *r}
	if g, ok := w.groups[r.GroupID]; ok {
		s.GroupName = g.Name
	}
	for k, p := range w.participants {
		if k.a != r.ID {
			continue
		}
		switch p.Status {
		case models.RSVPAttending:
			s.AttendingCount++
		case models.RSVPMaybe:
			s.MaybeCount++
		}
	}
	return s
}

func (w *world) withProfile(p models.Participant) *models.Participant {
	if prof, ok := w.profiles[p.UserID]; ok {
		cp := *prof
		p.Profile = &cp
	}
	return &p
}

// --- groups ---

type fakeGroups struct{ w *world }

func (f fakeGroups) CreateWithAdmin(ctx context.Context, group *models.Group, adminID uuid.UUID) error {
	w := f.w
	w.mu.Lock()
	defer w.mu.Unlock()
	w.createAttempts++
	if w.inviteCollisions > 0 {
		w.inviteCollisions--
		return apperrors.ErrInviteCodeCollision.Wrap(errors.New("duplicate key"))
	}
	for _, g := range w.groups {
		if g.InviteCode == group.InviteCode {
			return apperrors.ErrInviteCodeCollision.Wrap(errors.New("duplicate key"))
		}
	}
	group.ID = uuid.New()
	group.CreatedAt = time.Now()
	w.groups[group.ID] = group

	if w.failAdminInsert {
		// reconcile: no group without an admin
		delete(w.groups, group.ID)
		return errors.New("membership insert failed")
	}
	w.members[pairKey{group.ID, adminID}] = &models.GroupMembership{GroupID: group.ID, UserID: adminID, Role: models.RoleAdmin, JoinedAt: time.Now()}
	return nil
}

func (f fakeGroups) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	g, ok := f.w.groups[id]
	if !ok {
		return nil, apperrors.ErrGroupNotFound
	}
	cp := *g
	return &cp, nil
}

func (f fakeGroups) GetByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, g := range f.w.groups {
		if g.InviteCode == code {
			cp := *g
			return &cp, nil
		}
	}
	return nil, apperrors.ErrInviteCodeNotFound
}

func (f fakeGroups) Rename(ctx context.Context, id uuid.UUID, name string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	g, ok := f.w.groups[id]
	if !ok {
		return apperrors.ErrGroupNotFound
	}
	g.Name = name
	return nil
}

func (f fakeGroups) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.GroupWithRole, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*models.GroupWithRole
	for k, m := range f.w.members {
		if k.b != userID {
			continue
		}
		count := 0
		for k2 := range f.w.members {
			if k2.a == k.a {
				count++
			}
		}
		out = append(out, &models.GroupWithRole{Group: *f.w.groups[k.a], Role: m.Role, MemberCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- memberships ---

type fakeMemberships struct{ w *world }

func (f fakeMemberships) Add(ctx context.Context, groupID, userID uuid.UUID, role models.MemberRole) (*models.GroupMembership, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.groups[groupID]; !ok {
		return nil, apperrors.ErrGroupNotFound
	}
	key := pairKey{groupID, userID}
	if _, ok := f.w.members[key]; ok {
		return nil, apperrors.ErrAlreadyMember.Wrap(errors.New("duplicate key"))
	}
	m := &models.GroupMembership{GroupID: groupID, UserID: userID, Role: role, JoinedAt: time.Now()}
	f.w.members[key] = m
	return m, nil
}

func (f fakeMemberships) Remove(ctx context.Context, groupID, userID uuid.UUID) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	key := pairKey{groupID, userID}
	if _, ok := f.w.members[key]; !ok {
		return apperrors.ErrMembershipNotFound
	}
	delete(f.w.members, key)
	return nil
}

func (f fakeMemberships) Get(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMembership, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	m, ok := f.w.members[pairKey{groupID, userID}]
	if !ok {
		return nil, apperrors.ErrMembershipNotFound
	}
	cp := *m
	return &cp, nil
}

func (f fakeMemberships) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	n := 0
	for k := range f.w.members {
		if k.b == userID {
			n++
		}
	}
	return n, nil
}

func (f fakeMemberships) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMembership, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*models.GroupMembership
	for k, m := range f.w.members {
		if k.a != groupID {
			continue
		}
		cp := *m
		if p, ok := f.w.profiles[k.b]; ok {
			prof := *p
			cp.Profile = &prof
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

func (f fakeMemberships) ListMemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []uuid.UUID
	for k := range f.w.members {
		if k.a == groupID {
			out = append(out, k.b)
		}
	}
	return out, nil
}

// --- rides ---

type fakeRides struct{ w *world }

func (f fakeRides) Create(ctx context.Context, ride *models.Ride) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.groups[ride.GroupID]; !ok {
		return apperrors.ErrGroupNotFound
	}
	ride.ID = uuid.New()
	ride.CreatedAt = time.Now()
	cp := *ride
	f.w.rides[ride.ID] = &cp
	return nil
}

func (f fakeRides) GetByID(ctx context.Context, id uuid.UUID) (*models.RideSummary, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	r, ok := f.w.rides[id]
	if !ok {
		return nil, apperrors.ErrRideNotFound
	}
	return f.w.summary(r), nil
}

func (f fakeRides) Delete(ctx context.Context, id uuid.UUID) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.rides[id]; !ok {
		return apperrors.ErrRideNotFound
	}
	for k := range f.w.participants {
		if k.a == id {
			delete(f.w.participants, k)
		}
	}
	delete(f.w.rides, id)
	return nil
}

func (f fakeRides) SetGPXURL(ctx context.Context, id uuid.UUID, url *string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	r, ok := f.w.rides[id]
	if !ok {
		return apperrors.ErrRideNotFound
	}
	r.GPXURL = url
	return nil
}

func (f fakeRides) filter(keep func(r *models.Ride) bool) []*models.RideSummary {
	var out []*models.RideSummary
	for _, r := range f.w.rides {
		if keep(r) {
			out = append(out, f.w.summary(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out
}

func (f fakeRides) isMember(groupID, userID uuid.UUID) bool {
	_, ok := f.w.members[pairKey{groupID, userID}]
	return ok
}

func (f fakeRides) ListUpcomingForUser(ctx context.Context, userID uuid.UUID, from time.Time, limit int) ([]*models.RideSummary, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	out := f.filter(func(r *models.Ride) bool {
		return f.isMember(r.GroupID, userID) && !r.DateTime.Before(from)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeRides) ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.RideSummary, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	return f.filter(func(r *models.Ride) bool {
		return f.isMember(r.GroupID, userID) && !r.DateTime.Before(from) && r.DateTime.Before(to)
	}), nil
}

func (f fakeRides) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.RideSummary, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	return f.filter(func(r *models.Ride) bool { return r.GroupID == groupID }), nil
}

func (f fakeRides) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*models.RideSummary, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	return f.filter(func(r *models.Ride) bool {
		return !r.DateTime.Before(from) && r.DateTime.Before(to)
	}), nil
}

// --- participants ---

type fakeParticipants struct{ w *world }

func (f fakeParticipants) Get(ctx context.Context, rideID, userID uuid.UUID) (*models.Participant, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.participants[pairKey{rideID, userID}]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f fakeParticipants) Upsert(ctx context.Context, rideID, userID uuid.UUID, status models.RSVPStatus) (*models.Participant, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p := &models.Participant{RideID: rideID, UserID: userID, Status: status, UpdatedAt: time.Now()}
	f.w.participants[pairKey{rideID, userID}] = p
	cp := *p
	return &cp, nil
}

func (f fakeParticipants) Delete(ctx context.Context, rideID, userID uuid.UUID) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	delete(f.w.participants, pairKey{rideID, userID})
	return nil
}

func (f fakeParticipants) ListByRides(ctx context.Context, rideIDs ...uuid.UUID) ([]*models.Participant, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(rideIDs))
	for _, id := range rideIDs {
		want[id] = true
	}
	var out []*models.Participant
	for k, p := range f.w.participants {
		if want[k.a] {
			out = append(out, f.w.withProfile(*p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (f fakeParticipants) ListUserIDsByStatus(ctx context.Context, rideID uuid.UUID, statuses ...models.RSVPStatus) ([]uuid.UUID, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []uuid.UUID
	for k, p := range f.w.participants {
		if k.a != rideID {
			continue
		}
		for _, s := range statuses {
			if p.Status == s {
				out = append(out, k.b)
			}
		}
	}
	return out, nil
}

// --- notifications ---

type fakeNotifications struct{ w *world }

func (f fakeNotifications) InsertBatch(ctx context.Context, rows []*models.Notification) ([]*models.Notification, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	f.w.insertBatchCalls++
	if f.w.failInsertBatch != nil {
		return nil, f.w.failInsertBatch
	}
	out := make([]*models.Notification, 0, len(rows))
	for _, r := range rows {
		cp := *r
		cp.ID = uuid.New()
		cp.CreatedAt = time.Now()
		f.w.notifications = append(f.w.notifications, &cp)
		stored := cp
		out = append(out, &stored)
	}
	return out, nil
}

func (f fakeNotifications) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []*models.Notification
	for i := len(f.w.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if n := f.w.notifications[i]; n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakeNotifications) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	n := 0
	for _, row := range f.w.notifications {
		if row.UserID == userID && !row.Read {
			n++
		}
	}
	return n, nil
}

func (f fakeNotifications) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, row := range f.w.notifications {
		if row.ID == id && row.UserID == userID {
			row.Read = true
			return nil
		}
	}
	return apperrors.ErrNotificationNotFound
}

func (f fakeNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var n int64
	for _, row := range f.w.notifications {
		if row.UserID == userID && !row.Read {
			row.Read = true
			n++
		}
	}
	return n, nil
}

// --- profiles ---

type fakeProfiles struct{ w *world }

func (f fakeProfiles) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.profiles[id]
	if !ok {
		return nil, apperrors.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakeProfiles) Update(ctx context.Context, p *models.Profile) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.profiles[p.ID]; !ok {
		return apperrors.ErrProfileNotFound
	}
	cp := *p
	f.w.profiles[p.ID] = &cp
	return nil
}

func (f fakeProfiles) GetEmail(ctx context.Context, id uuid.UUID) (string, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	e, ok := f.w.emails[id]
	if !ok {
		return "", apperrors.ErrProfileNotFound
	}
	return e, nil
}

// --- collaborators ---

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (p *recordingPublisher) Publish(ctx context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failDel   error
	deletions []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

const fakeBlobPrefix = "https://blobs.test/gpx-files/"

func (b *fakeBlobs) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return fakeBlobPrefix + key, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletions = append(b.deletions, key)
	if b.failDel != nil {
		return b.failDel
	}
	delete(b.objects, key)
	return nil
}

func (b *fakeBlobs) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, fakeBlobPrefix) {
		return "", false
	}
	return strings.TrimPrefix(url, fakeBlobPrefix), true
}

type fakeTracks struct {
	summary gpx.Summary
	err     error
	urls    []string
}

func (t *fakeTracks) FetchAndSummarize(ctx context.Context, url string) (gpx.Summary, error) {
	t.urls = append(t.urls, url)
	return t.summary, t.err
}

// fixture wires every service against one world.
type fixture struct {
	w        *world
	pub      *recordingPublisher
	blobs    *fakeBlobs
	tracks   *fakeTracks
	now      time.Time
	notify   NotificationService
	members  MembershipService
	rsvp     RSVPService
	rides    RideService
	profiles ProfileService
}

func newFixture(forecaster Forecaster) *fixture {
	f := &fixture{
		w:      newWorld(),
		pub:    &recordingPublisher{},
		blobs:  newFakeBlobs(),
		tracks: &fakeTracks{},
		now:    time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC),
	}
	logger := testLogger()
	groups := fakeGroups{f.w}
	memberships := fakeMemberships{f.w}
	rides := fakeRides{f.w}
	participants := fakeParticipants{f.w}
	profiles := fakeProfiles{f.w}

	f.notify = NewNotificationService(fakeNotifications{f.w}, groups, memberships, rides, participants, f.pub, logger)
	ms := NewMembershipService(groups, memberships, profiles, f.notify, logger).(*membershipServiceImpl)
	ms.retryWait = time.Millisecond
	f.members = ms
	f.rsvp = NewRSVPService(rides, participants, profiles, f.members, f.notify, logger)
	f.rides = NewRideService(RideServiceDeps{
		Rides:         rides,
		Participants:  participants,
		Profiles:      profiles,
		Membership:    f.members,
		Notifications: f.notify,
		Blobs:         f.blobs,
		Tracks:        f.tracks,
		Forecaster:    forecaster,
		Now:           func() time.Time { return f.now },
	}, logger)
	f.profiles = NewProfileService(profiles, logger)
	return f
}
