package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVerifyMissingRequestWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.verify.Verify(ctx, "gone", "https://img/after.jpg", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, res)

	audit, err := f.verify.ListByRequest(ctx, "gone")
	require.NoError(t, err)
	assert.Empty(t, audit)
	f.judge.AssertNotCalled(t, "CompareCompletion", mock.Anything, mock.Anything)
}

func TestVerifyWithoutJudge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, "u1", "")

	svc := NewVerificationService(nil, f.repos.Requests, f.repos.Verifications)
	res, err := svc.Verify(ctx, req.ID, "https://img/after.jpg", "done")
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, verificationUnavailableMessage, res.Message)

	audit, err := svc.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.False(t, audit[0].ServiceAvailable)
	assert.Equal(t, "done", audit[0].CompletionNote)
}
