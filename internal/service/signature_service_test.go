package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/care-ops-api/internal/models"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
)

func TestCanSignPermissionMap(t *testing.T) {
	allowed := map[models.SignerType][]models.UserRole{
		models.SignerEmployee:   {models.RoleSubjectEmployee},
		models.SignerSupervisor: {models.RoleSupervisor, models.RoleAdmin},
		models.SignerWitness:    {models.RoleStaff, models.RoleSupervisor, models.RoleHR, models.RoleAdmin},
		models.SignerHR:         {models.RoleHR, models.RoleAdmin},
	}
	roles := append([]models.UserRole{models.RoleSubjectEmployee}, models.StaffRoles...)

	for signerType, permitted := range allowed {
		for _, role := range roles {
			want := false
			for _, p := range permitted {
				if p == role {
					want = true
				}
			}
			assert.Equal(t, want, CanSign(signerType, role), "%s as %s", role, signerType)
		}
	}
	assert.False(t, CanSign("NOTARY", models.RoleAdmin))
}

func TestAddSignatureShapeValidation(t *testing.T) {
	cases := []struct {
		name string
		in   SignatureInput
	}{
		{"unknown signer type", SignatureInput{SignerType: "NOTARY", SignerID: "u", SignatureData: []byte("x")}},
		{"blank signer", SignatureInput{SignerType: models.SignerWitness, SignerID: " ", SignatureData: []byte("x")}},
		{"empty signature", SignatureInput{SignerType: models.SignerWitness, SignerID: "u"}},
		{"dispute on staff signature", SignatureInput{SignerType: models.SignerHR, SignerID: "u", SignatureData: []byte("x"), Dispute: true}},
		{"comments on staff signature", SignatureInput{SignerType: models.SignerHR, SignerID: "u", SignatureData: []byte("x"), EmployeeComments: strPtr("hi")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			action := f.create(t, baseInput("cat-med"))
			tc.in.ActionID = action.ID
			tc.in.CallerRole = models.RoleAdmin

			_, err := f.signatures.AddSignature(context.Background(), tc.in)
			assertAppError(t, err, appErrors.ErrValidation)
		})
	}
}

func TestAddSignatureRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("role not permitted", func(t *testing.T) {
		f := newFixture(t)
		action := f.create(t, baseInput("cat-med"))
		_, err := f.signatures.AddSignature(ctx, SignatureInput{
			ActionID: action.ID, SignerType: models.SignerSupervisor, SignerID: "staff-1",
			SignatureData: []byte("x"), CallerRole: models.RoleStaff,
		})
		assertAppError(t, err, appErrors.ErrForbidden)
	})

	t.Run("staff cannot sign as employee", func(t *testing.T) {
		f := newFixture(t)
		action := f.create(t, baseInput("cat-med"))
		_, err := f.signatures.AddSignature(ctx, SignatureInput{
			ActionID: action.ID, SignerType: models.SignerEmployee, SignerID: "emp-1",
			SignatureData: []byte("x"), CallerRole: models.RoleAdmin,
		})
		assertAppError(t, err, appErrors.ErrForbidden)
	})

	t.Run("employee signature from another employee", func(t *testing.T) {
		f := newFixture(t)
		action := f.create(t, baseInput("cat-med"))
		_, err := f.signatures.AddSignature(ctx, SignatureInput{
			ActionID: action.ID, SignerType: models.SignerEmployee, SignerID: "emp-2",
			SignatureData: []byte("x"), CallerRole: models.RoleSubjectEmployee,
		})
		assertAppError(t, err, appErrors.ErrForbidden)
	})

	t.Run("duplicate signer type", func(t *testing.T) {
		f := newFixture(t)
		action := f.create(t, baseInput("cat-med"))
		f.sign(t, action.ID, models.SignerWitness, "staff-1", models.RoleStaff)
		_, err := f.signatures.AddSignature(ctx, SignatureInput{
			ActionID: action.ID, SignerType: models.SignerWitness, SignerID: "staff-2",
			SignatureData: []byte("x"), CallerRole: models.RoleStaff,
		})
		assertAppError(t, err, appErrors.ErrConflict)
	})

	t.Run("voided wins over role check", func(t *testing.T) {
		f := newFixture(t)
		action := f.create(t, baseInput("cat-med"))
		_, err := f.voids.Void(ctx, action.ID, "admin-1", models.RoleAdmin, "entered twice")
		require.NoError(t, err)
		_, err = f.signatures.AddSignature(ctx, SignatureInput{
			ActionID: action.ID, SignerType: models.SignerHR, SignerID: "staff-1",
			SignatureData: []byte("x"), CallerRole: models.RoleStaff,
		})
		assertAppError(t, err, appErrors.ErrConflict)
	})

	t.Run("unknown action", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.signatures.AddSignature(ctx, SignatureInput{
			ActionID: "missing", SignerType: models.SignerHR, SignerID: "hr-1",
			SignatureData: []byte("x"), CallerRole: models.RoleHR,
		})
		assertAppError(t, err, appErrors.ErrNotFound)
	})
}

func TestEmployeeDispute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	action := f.create(t, baseInput("cat-med"))

	signed, err := f.signatures.AddSignature(ctx, SignatureInput{
		ActionID:         action.ID,
		SignerType:       models.SignerEmployee,
		SignerID:         "emp-1",
		SignatureData:    []byte("sig"),
		CallerRole:       models.RoleSubjectEmployee,
		Dispute:          true,
		EmployeeComments: strPtr("  The medication cart was locked.  "),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusDisputed, signed.Status)
	require.NotNil(t, signed.EmployeeComments)
	assert.Equal(t, "The medication cart was locked.", *signed.EmployeeComments)
	assert.Equal(t, 5, signed.EffectivePoints())

	// HR can still countersign a disputed action.
	countersigned := f.sign(t, action.ID, models.SignerHR, "hr-1", models.RoleHR)
	assert.Equal(t, models.ActionStatusDisputed, countersigned.Status)
	assert.Len(t, countersigned.Signatures, 2)
}

func TestSignatureDataIsCopied(t *testing.T) {
	f := newFixture(t)
	action := f.create(t, baseInput("cat-med"))
	data := []byte("original")

	_, err := f.signatures.AddSignature(context.Background(), SignatureInput{
		ActionID: action.ID, SignerType: models.SignerHR, SignerID: "hr-1",
		SignatureData: data, CallerRole: models.RoleHR,
	})
	require.NoError(t, err)
	data[0] = 'X'

	stored, err := f.actions.Get(context.Background(), action.ID)
	require.NoError(t, err)
	sig, ok := stored.Signature(models.SignerHR)
	require.True(t, ok)
	assert.Equal(t, []byte("original"), sig.SignatureData)
}

func TestConcurrentDuplicateSignatures(t *testing.T) {
	f := newFixture(t)
	action := f.create(t, baseInput("cat-med"))

	var succeeded, conflicted int32
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := f.signatures.AddSignature(context.Background(), SignatureInput{
				ActionID: action.ID, SignerType: models.SignerEmployee, SignerID: "emp-1",
				SignatureData: []byte("sig"), CallerRole: models.RoleSubjectEmployee,
			})
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case errors.Is(err, appErrors.ErrConflict):
				atomic.AddInt32(&conflicted, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, succeeded)
	assert.EqualValues(t, 15, conflicted)

	stored, err := f.actions.Get(context.Background(), action.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Signatures, 1)
	assert.Equal(t, models.ActionStatusAcknowledged, stored.Status)

	history, err := f.actions.History(context.Background(), action.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestConcurrentSignAndVoid(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		action := f.create(t, baseInput("cat-med"))

		var signErr, voidErr error
		var g errgroup.Group
		g.Go(func() error {
			_, signErr = f.signatures.AddSignature(context.Background(), SignatureInput{
				ActionID: action.ID, SignerType: models.SignerEmployee, SignerID: "emp-1",
				SignatureData: []byte("sig"), CallerRole: models.RoleSubjectEmployee,
			})
			return nil
		})
		g.Go(func() error {
			_, voidErr = f.voids.Void(context.Background(), action.ID, "hr-1", models.RoleHR, "raised in error")
			return nil
		})
		require.NoError(t, g.Wait())
		require.NoError(t, voidErr)

		stored, err := f.actions.Get(context.Background(), action.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ActionStatusVoided, stored.Status)
		if signErr != nil {
			assertAppError(t, signErr, appErrors.ErrConflict)
			assert.Empty(t, stored.Signatures)
		} else {
			assert.Len(t, stored.Signatures, 1)
		}
	}
}
