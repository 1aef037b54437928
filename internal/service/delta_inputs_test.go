package service_test

import (
	"context"
	"testing"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaInputs_SetGetClear(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.inputs.Set("u-1", "g-1", " 120 "))
	text, ok := f.inputs.Get("u-1", "g-1")
	require.True(t, ok)
	assert.Equal(t, "120", text)

	_, ok = f.inputs.Get("u-2", "g-1")
	assert.False(t, ok, "inputs are scoped per user")

	f.inputs.Clear("u-1", "g-1")
	_, ok = f.inputs.Get("u-1", "g-1")
	assert.False(t, ok)
}

func TestDeltaInputs_BlankClears(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.inputs.Set("u-1", "g-1", "10"))
	require.NoError(t, f.inputs.Set("u-1", "g-1", "   "))

	_, ok := f.inputs.Get("u-1", "g-1")
	assert.False(t, ok)
}

func TestDeltaInputs_ApplyClearsOnSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gp, err := f.goals.Create(ctx, "u-1", "Car", dec("1000"))
	require.NoError(t, err)

	require.NoError(t, f.inputs.Set("u-1", gp.ID, "250"))
	got, err := f.inputs.Apply(ctx, "u-1", gp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), got.ProgressPercent)

	_, ok := f.inputs.Get("u-1", gp.ID)
	assert.False(t, ok)
}

func TestDeltaInputs_ApplyKeepsTextOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gp, err := f.goals.Create(ctx, "u-1", "Car", dec("1000"))
	require.NoError(t, err)

	require.NoError(t, f.inputs.Set("u-1", gp.ID, "-50"))
	var v *domain.ErrValidation
	_, err = f.inputs.Apply(ctx, "u-1", gp.ID)
	require.ErrorAs(t, err, &v)

	text, ok := f.inputs.Get("u-1", gp.ID)
	require.True(t, ok)
	assert.Equal(t, "-50", text)

	require.NoError(t, f.inputs.Set("u-1", gp.ID, "abc"))
	_, err = f.inputs.Apply(ctx, "u-1", gp.ID)
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "delta", v.Field)
}

func TestDeltaInputs_ApplyWithoutPending(t *testing.T) {
	f := newFixture(t)

	var nf *domain.ErrNotFound
	_, err := f.inputs.Apply(context.Background(), "u-1", "g-1")
	require.ErrorAs(t, err, &nf)
}
