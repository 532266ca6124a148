package repositories

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/migrations"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/db"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

// These tests need a disposable PostgreSQL database:
//
//	MOTOBUDDIES_TEST_DATABASE_URL=postgres://... go test ./internal/app/repositories
func setupRepos(t *testing.T) (*Repositories, *db.PostgresDB) {
	t.Helper()
	dsn := os.Getenv("MOTOBUDDIES_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("MOTOBUDDIES_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	m, err := migrations.NewMigrator(dsn, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if err := m.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	database := &db.PostgresDB{Pool: pool}
	return NewRepositories(database), database
}

func createUser(t *testing.T, database *db.PostgresDB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := database.Pool.Exec(context.Background(),
		`INSERT INTO auth.users (id, email, raw_user_meta_data) VALUES ($1, $2, jsonb_build_object('username', $3::text))`,
		id, name+"-"+id.String()[:8]+"@example.com", name)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func inviteCode() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

func TestGroupMembershipLifecycle(t *testing.T) {
	repos, database := setupRepos(t)
	ctx := context.Background()
	admin := createUser(t, database, "marco")
	rider := createUser(t, database, "giulia")

	profile, err := repos.ProfileRepository.GetByID(ctx, admin)
	if err != nil || profile.Username != "marco" {
		t.Fatalf("trigger profile: %+v %v", profile, err)
	}

	code := inviteCode()
	g := &models.Group{Name: "Lupi", InviteCode: code}
	if err := repos.GroupRepository.CreateWithAdmin(ctx, g, admin); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &models.Group{Name: "Copy", InviteCode: code}
	if err := repos.GroupRepository.CreateWithAdmin(ctx, dup, admin); !errors.Is(err, apperrors.ErrInviteCodeCollision) {
		t.Fatalf("duplicate code: %v", err)
	}

	found, err := repos.GroupRepository.GetByInviteCode(ctx, code)
	if err != nil || found.ID != g.ID {
		t.Fatalf("by code: %v %v", found, err)
	}

	if _, err := repos.MembershipRepository.Add(ctx, g.ID, rider, models.RoleMember); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.MembershipRepository.Add(ctx, g.ID, rider, models.RoleMember); !errors.Is(err, apperrors.ErrAlreadyMember) {
		t.Fatalf("second join: %v", err)
	}

	members, err := repos.MembershipRepository.ListMembers(ctx, g.ID)
	if err != nil || len(members) != 2 || members[0].Role != models.RoleAdmin {
		t.Fatalf("members: %v %v", members, err)
	}

	if err := repos.MembershipRepository.Remove(ctx, g.ID, rider); err != nil {
		t.Fatal(err)
	}
	if err := repos.MembershipRepository.Remove(ctx, g.ID, rider); !errors.Is(err, apperrors.ErrMembershipNotFound) {
		t.Fatalf("second leave: %v", err)
	}
}

func TestCreateGroupRollsBackWithoutAdminProfile(t *testing.T) {
	repos, database := setupRepos(t)
	ctx := context.Background()

	code := inviteCode()
	g := &models.Group{Name: "Orfani", InviteCode: code}
	err := repos.GroupRepository.CreateWithAdmin(ctx, g, uuid.New())
	if !errors.Is(err, apperrors.ErrProfileNotFound) {
		t.Fatalf("create with unknown admin: %v", err)
	}
	if _, err := repos.GroupRepository.GetByInviteCode(ctx, code); !errors.Is(err, apperrors.ErrInviteCodeNotFound) {
		t.Fatalf("group survived the failed admin insert: %v", err)
	}

	// The membership and ride inserts tell a missing profile from a missing group.
	owner := createUser(t, database, "piero")
	appennino := &models.Group{Name: "Appennino", InviteCode: inviteCode()}
	if err := repos.GroupRepository.CreateWithAdmin(ctx, appennino, owner); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.MembershipRepository.Add(ctx, appennino.ID, uuid.New(), models.RoleMember); !errors.Is(err, apperrors.ErrProfileNotFound) {
		t.Fatalf("join with unknown profile: %v", err)
	}
	if _, err := repos.MembershipRepository.Add(ctx, uuid.New(), owner, models.RoleMember); !errors.Is(err, apperrors.ErrGroupNotFound) {
		t.Fatalf("join unknown group: %v", err)
	}
	ride := &models.Ride{
		GroupID:   appennino.ID,
		CreatedBy: uuid.New(),
		Title:     "Passo del Muraglione",
		DateTime:  time.Now().Add(24 * time.Hour),
		StartLat:  43.95,
		StartLon:  11.65,
	}
	if err := repos.RideRepository.Create(ctx, ride); !errors.Is(err, apperrors.ErrProfileNotFound) {
		t.Fatalf("ride by unknown profile: %v", err)
	}
}

func TestRideParticipantsAndDelete(t *testing.T) {
	repos, database := setupRepos(t)
	ctx := context.Background()
	creator := createUser(t, database, "anna")

	g := &models.Group{Name: "Dolomiti", InviteCode: inviteCode()}
	if err := repos.GroupRepository.CreateWithAdmin(ctx, g, creator); err != nil {
		t.Fatal(err)
	}

	ride := &models.Ride{
		GroupID:   g.ID,
		CreatedBy: creator,
		Title:     "Passo Giau",
		DateTime:  time.Now().Add(48 * time.Hour),
		StartLat:  46.48,
		StartLon:  12.05,
	}
	if err := repos.RideRepository.Create(ctx, ride); err != nil {
		t.Fatal(err)
	}

	if _, err := repos.ParticipantRepository.Upsert(ctx, ride.ID, creator, models.RSVPMaybe); err != nil {
		t.Fatal(err)
	}
	p, err := repos.ParticipantRepository.Upsert(ctx, ride.ID, creator, models.RSVPAttending)
	if err != nil || p.Status != models.RSVPAttending {
		t.Fatalf("upsert: %v %v", p, err)
	}

	summary, err := repos.RideRepository.GetByID(ctx, ride.ID)
	if err != nil || summary.AttendingCount != 1 || summary.MaybeCount != 0 || summary.GroupName != "Dolomiti" {
		t.Fatalf("summary: %+v %v", summary, err)
	}

	if err := repos.RideRepository.Delete(ctx, ride.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.RideRepository.GetByID(ctx, ride.ID); !errors.Is(err, apperrors.ErrRideNotFound) {
		t.Fatalf("after delete: %v", err)
	}
	left, err := repos.ParticipantRepository.Get(ctx, ride.ID, creator)
	if err != nil || left != nil {
		t.Fatalf("participant survived: %v %v", left, err)
	}
}

func TestNotificationBatch(t *testing.T) {
	repos, database := setupRepos(t)
	ctx := context.Background()
	a := createUser(t, database, "luca")
	b := createUser(t, database, "sara")

	inserted, err := repos.NotificationRepository.InsertBatch(ctx, []*models.Notification{
		{UserID: a, Type: models.NotificationNewMember, Title: "t", Body: "b"},
		{UserID: b, Type: models.NotificationNewMember, Title: "t", Body: "b"},
	})
	if err != nil || len(inserted) != 2 || inserted[0].ID == uuid.Nil {
		t.Fatalf("insert: %v %v", inserted, err)
	}

	if n, _ := repos.NotificationRepository.CountUnread(ctx, a); n != 1 {
		t.Fatalf("unread = %d", n)
	}
	if err := repos.NotificationRepository.MarkRead(ctx, inserted[0].ID, b); !errors.Is(err, apperrors.ErrNotificationNotFound) {
		t.Fatalf("foreign mark read: %v", err)
	}
	if changed, err := repos.NotificationRepository.MarkAllRead(ctx, a); err != nil || changed != 1 {
		t.Fatalf("mark all: %d %v", changed, err)
	}
}
