package polls

import (
	"context"
	"testing"
	"time"

	"pollboard-backend/auth"
	"pollboard-backend/models"
	"pollboard-backend/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Session{}, &models.Poll{}, &models.Vote{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	gw := auth.NewGateway(auth.NewGormProvider(db, 4, 24*time.Hour))
	return NewService(db, gw), db
}

func createUser(t *testing.T, db *gorm.DB, email string, admin bool) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: "irrelevant",
		Metadata:     models.UserMetadata{IsAdmin: admin},
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func defaultParams() validation.PollParams {
	return validation.PollParams{
		Question:              "What should we build next?",
		Options:               []string{"A tool", "A library"},
		AllowMultipleVotes:    false,
		RequireAuthentication: true,
	}
}

func TestCreateRequiresUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), uuid.Nil, defaultParams())
	assert.ErrorIs(t, err, auth.ErrAuthenticationRequired)
}

func TestCreateAndFetch(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)

	poll, err := svc.Create(context.Background(), owner.ID, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, owner.ID, poll.UserID)

	got, err := svc.ByID(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, poll.Question, got.Question)
	assert.Equal(t, []string{"A tool", "A library"}, got.Options)
}

func TestCreateStoresNonDefaultFlags(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)

	params := defaultParams()
	params.RequireAuthentication = false
	params.AllowMultipleVotes = true
	poll, err := svc.Create(context.Background(), owner.ID, params)
	require.NoError(t, err)

	// read back from the store, not the returned struct
	var stored models.Poll
	require.NoError(t, db.First(&stored, "id = ?", poll.ID).Error)
	assert.False(t, stored.RequireAuthentication, "false flag must survive the insert")
	assert.True(t, stored.AllowMultipleVotes)
}

func TestUpdatePreservesVotingFlags(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)

	params := defaultParams()
	params.RequireAuthentication = false
	params.AllowMultipleVotes = true
	poll, err := svc.Create(context.Background(), owner.ID, params)
	require.NoError(t, err)

	require.NoError(t, svc.Update(context.Background(), poll.ID, owner, "Question changed by owner", params.Options))

	var stored models.Poll
	require.NoError(t, db.First(&stored, "id = ?", poll.ID).Error)
	assert.Equal(t, "Question changed by owner", stored.Question)
	assert.False(t, stored.RequireAuthentication, "update must not reset flags to creation defaults")
	assert.True(t, stored.AllowMultipleVotes)
}

func TestByIDNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserPollsNewestFirst(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)
	other := createUser(t, db, "other@example.com", false)

	older := models.Poll{UserID: owner.ID, Question: "older", Options: []string{"a", "b"}, CreatedAt: time.Now().Add(-time.Hour)}
	newer := models.Poll{UserID: owner.ID, Question: "newer", Options: []string{"a", "b"}, CreatedAt: time.Now()}
	foreign := models.Poll{UserID: other.ID, Question: "foreign", Options: []string{"a", "b"}}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&newer).Error)
	require.NoError(t, db.Create(&foreign).Error)

	list, err := svc.UserPolls(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Question)
	assert.Equal(t, "older", list[1].Question)
}

func TestUpdateOwnershipGate(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)
	stranger := createUser(t, db, "stranger@example.com", false)
	admin := createUser(t, db, "admin@example.com", true)

	poll, err := svc.Create(context.Background(), owner.ID, defaultParams())
	require.NoError(t, err)

	newQuestion := "Question changed by test"
	options := []string{"A tool", "A library"}

	t.Run("unauthenticated", func(t *testing.T) {
		err := svc.Update(context.Background(), poll.ID, nil, newQuestion, options)
		assert.ErrorIs(t, err, auth.ErrAuthenticationRequired)
	})

	t.Run("non-owner denied, row unchanged", func(t *testing.T) {
		err := svc.Update(context.Background(), poll.ID, stranger, newQuestion, options)
		assert.ErrorIs(t, err, auth.ErrAuthorizationDenied)

		var current models.Poll
		require.NoError(t, db.First(&current, "id = ?", poll.ID).Error)
		assert.Equal(t, poll.Question, current.Question)
	})

	t.Run("owner allowed", func(t *testing.T) {
		require.NoError(t, svc.Update(context.Background(), poll.ID, owner, newQuestion, options))
	})

	t.Run("admin allowed on foreign poll", func(t *testing.T) {
		require.NoError(t, svc.Update(context.Background(), poll.ID, admin, "Question changed by admin", options))

		var current models.Poll
		require.NoError(t, db.First(&current, "id = ?", poll.ID).Error)
		assert.Equal(t, "Question changed by admin", current.Question)
	})
}

func TestByIDForEditGate(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)
	stranger := createUser(t, db, "stranger@example.com", false)

	poll, err := svc.Create(context.Background(), owner.ID, defaultParams())
	require.NoError(t, err)

	_, err = svc.ByIDForEdit(context.Background(), poll.ID, stranger)
	assert.ErrorIs(t, err, auth.ErrAuthorizationDenied)

	got, err := svc.ByIDForEdit(context.Background(), poll.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, poll.ID, got.ID)
}

func TestDeleteCascadesVotes(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)
	voter := createUser(t, db, "voter@example.com", false)

	poll, err := svc.Create(context.Background(), owner.ID, defaultParams())
	require.NoError(t, err)
	require.NoError(t, svc.SubmitVote(context.Background(), poll.ID, voter, 0))

	t.Run("stranger cannot delete", func(t *testing.T) {
		stranger := createUser(t, db, "stranger@example.com", false)
		err := svc.Delete(context.Background(), poll.ID, stranger)
		assert.ErrorIs(t, err, auth.ErrAuthorizationDenied)
	})

	require.NoError(t, svc.Delete(context.Background(), poll.ID, owner))

	var votes int64
	require.NoError(t, db.Model(&models.Vote{}).Where("poll_id = ?", poll.ID).Count(&votes).Error)
	assert.Zero(t, votes, "votes must not outlive their poll")

	_, err = svc.ByID(context.Background(), poll.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitVoteDuplicate(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)
	voter := createUser(t, db, "voter@example.com", false)

	poll, err := svc.Create(context.Background(), owner.ID, defaultParams())
	require.NoError(t, err)

	require.NoError(t, svc.SubmitVote(context.Background(), poll.ID, voter, 0))
	err = svc.SubmitVote(context.Background(), poll.ID, voter, 1)
	assert.ErrorIs(t, err, ErrDuplicateVote)

	var count int64
	require.NoError(t, db.Model(&models.Vote{}).
		Where("poll_id = ? AND user_id = ?", poll.ID, voter.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitVoteAuthRequirement(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)

	gated, err := svc.Create(context.Background(), owner.ID, defaultParams())
	require.NoError(t, err)

	open := defaultParams()
	open.RequireAuthentication = false
	openPoll, err := svc.Create(context.Background(), owner.ID, open)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SubmitVote(context.Background(), gated.ID, nil, 0), ErrAuthRequired)

	// anonymous votes on an open poll are accepted and not deduplicated
	require.NoError(t, svc.SubmitVote(context.Background(), openPoll.ID, nil, 0))
	require.NoError(t, svc.SubmitVote(context.Background(), openPoll.ID, nil, 0))

	var anonVotes int64
	require.NoError(t, db.Model(&models.Vote{}).
		Where("poll_id = ? AND user_id IS NULL", openPoll.ID).
		Count(&anonVotes).Error)
	assert.EqualValues(t, 2, anonVotes)
}

func TestSubmitVoteStaleOptionIndex(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)
	voter := createUser(t, db, "voter@example.com", false)

	params := defaultParams()
	params.Options = []string{"one", "two", "three"}
	poll, err := svc.Create(context.Background(), owner.ID, params)
	require.NoError(t, err)

	// index 2 is valid against the original three options
	require.NoError(t, svc.Update(context.Background(), poll.ID, owner, params.Question, []string{"one", "two"}))

	err = svc.SubmitVote(context.Background(), poll.ID, voter, 2)
	assert.ErrorIs(t, err, ErrOptionOutOfRange)

	var votes int64
	require.NoError(t, db.Model(&models.Vote{}).Where("poll_id = ?", poll.ID).Count(&votes).Error)
	assert.Zero(t, votes)
}

func TestResults(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)
	v1 := createUser(t, db, "v1@example.com", false)
	v2 := createUser(t, db, "v2@example.com", false)

	poll, err := svc.Create(context.Background(), owner.ID, defaultParams())
	require.NoError(t, err)

	require.NoError(t, svc.SubmitVote(context.Background(), poll.ID, v1, 0))
	require.NoError(t, svc.SubmitVote(context.Background(), poll.ID, v2, 1))
	require.NoError(t, svc.SubmitVote(context.Background(), poll.ID, owner, 1))

	counts, err := svc.Results(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, counts)
}

func TestAllRequiresAdmin(t *testing.T) {
	svc, db := newTestService(t)
	owner := createUser(t, db, "owner@example.com", false)
	admin := createUser(t, db, "admin@example.com", true)

	_, err := svc.Create(context.Background(), owner.ID, defaultParams())
	require.NoError(t, err)

	_, err = svc.All(context.Background(), nil)
	assert.ErrorIs(t, err, auth.ErrAuthenticationRequired)

	_, err = svc.All(context.Background(), owner)
	assert.ErrorIs(t, err, auth.ErrAuthorizationDenied)

	list, err := svc.All(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
