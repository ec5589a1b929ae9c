package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProjectProgressPercentage(t *testing.T) {
	cases := []struct {
		goal, current float64
		want          int
		funded        bool
	}{
		{1000, 250, 25, false},
		{1000, 0, 0, false},
		{1000, 999.99, 99, false},
		{1000, 1000, 100, true},
		{1000, 2500, 100, true},
		{0, 50, 0, true},
	}

	for _, tc := range cases {
		p := Project{Goal: tc.goal, CurrentAmount: tc.current}
		assert.Equal(t, tc.want, p.ProgressPercentage(), "goal=%v current=%v", tc.goal, tc.current)
		assert.Equal(t, tc.funded, p.IsFunded(), "goal=%v current=%v", tc.goal, tc.current)
	}
}

func TestProjectDaysRemaining(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	p := Project{EndDate: now.Add(30*24*time.Hour + time.Hour)}
	assert.Equal(t, 30, p.DaysRemaining(now))

	p.EndDate = now.Add(-time.Hour)
	assert.Equal(t, 0, p.DaysRemaining(now))
}

func TestProjectVisibleTo(t *testing.T) {
	owner := &User{ID: uuid.New(), Role: RoleIdeaOwner}
	admin := &User{ID: uuid.New(), Role: RoleAdmin}
	stranger := &User{ID: uuid.New(), Role: RoleInvestor}

	p := Project{UserID: owner.ID, Status: ProjectPending}
	assert.True(t, p.VisibleTo(owner))
	assert.True(t, p.VisibleTo(admin))
	assert.False(t, p.VisibleTo(stranger))
	assert.False(t, p.VisibleTo(nil))

	p.Status = ProjectApproved
	assert.True(t, p.VisibleTo(stranger))
}

func TestTeamMemberValidate(t *testing.T) {
	id := uuid.New()

	assert.NoError(t, (&TeamMember{UserID: &id}).Validate())
	assert.NoError(t, (&TeamMember{Name: "Asha", Role: "CTO"}).Validate())
	assert.ErrorIs(t, (&TeamMember{}).Validate(), ErrTeamMemberIdentity)
	assert.ErrorIs(t, (&TeamMember{UserID: &id, Name: "Asha"}).Validate(), ErrTeamMemberIdentity)
	assert.ErrorIs(t, (&TeamMember{Name: "   "}).Validate(), ErrTeamMemberIdentity)
}
