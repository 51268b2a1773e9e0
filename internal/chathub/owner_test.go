package chathub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"natalk/server/internal/chathub"
)

func TestOwnerTracker_ClaimAndRelease(t *testing.T) {
	tracker := chathub.NewOwnerTracker()

	assert.True(t, tracker.Claim("room-1", "owner-a"))
	holder, ok := tracker.Holder("room-1")
	assert.True(t, ok)
	assert.Equal(t, "owner-a", holder)

	tracker.Release("room-1", "owner-a")
	_, ok = tracker.Holder("room-1")
	assert.False(t, ok)
}

func TestOwnerTracker_RejectsDifferentIdentity(t *testing.T) {
	tracker := chathub.NewOwnerTracker()

	assert.True(t, tracker.Claim("room-1", "owner-a"))
	assert.False(t, tracker.Claim("room-1", "owner-b"), "slot is taken")

	holder, _ := tracker.Holder("room-1")
	assert.Equal(t, "owner-a", holder, "failed claim must not change the holder")
}

func TestOwnerTracker_SameIdentityReclaims(t *testing.T) {
	tracker := chathub.NewOwnerTracker()

	assert.True(t, tracker.Claim("room-1", "owner-a"))
	assert.True(t, tracker.Claim("room-1", "owner-a"), "reconnect of the holder is allowed")
}

func TestOwnerTracker_ReleaseByNonHolderIsNoop(t *testing.T) {
	tracker := chathub.NewOwnerTracker()

	tracker.Claim("room-1", "owner-a")
	tracker.Release("room-1", "owner-b")

	holder, ok := tracker.Holder("room-1")
	assert.True(t, ok)
	assert.Equal(t, "owner-a", holder)
}

func TestOwnerTracker_RoomsAreIndependent(t *testing.T) {
	tracker := chathub.NewOwnerTracker()

	assert.True(t, tracker.Claim("room-1", "owner-a"))
	assert.True(t, tracker.Claim("room-2", "owner-b"))
}
